package domain

// UploadKind selects the backend endpoint a file is sent to
type UploadKind string

func (k UploadKind) String() string {
	return string(k)
}

const (
	UploadImage UploadKind = "image"
	UploadSpec  UploadKind = "spec"
)

// UploadResult is what the backend answers after storing a file
type UploadResult struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}
