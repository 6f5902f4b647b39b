package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"resty.dev/v3"
)

// maxMessageLen bounds how much of an error body ends up in logs and API answers
const maxMessageLen = 300

// RemoteError is a non-2xx answer from the backend
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.Status == http.StatusNotFound
}

// errorBody is the JSON error shape of the backend
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// remoteErrorOf builds the error for a non-2xx answer. JSON bodies were
// already decoded into apiErr by resty; anything else is still readable
// from the response.
func remoteErrorOf(resp *resty.Response, apiErr errorBody) *RemoteError {
	switch {
	case apiErr.Error != "":
		return &RemoteError{Status: resp.StatusCode(), Message: truncate(apiErr.Error)}
	case apiErr.Message != "":
		return &RemoteError{Status: resp.StatusCode(), Message: truncate(apiErr.Message)}
	}
	return newRemoteError(resp.StatusCode(), resp.String())
}

func newRemoteError(status int, body string) *RemoteError {
	msg := readableMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &RemoteError{Status: status, Message: msg}
}

// readableMessage reduces an error body to one line of text. JSON bodies
// yield their "error" or "message" field, HTML pages (proxies, the hosting
// provider) yield their title or visible text.
func readableMessage(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}

	if strings.HasPrefix(body, "{") {
		var payload errorBody
		if err := json.Unmarshal([]byte(body), &payload); err == nil {
			if payload.Error != "" {
				return truncate(payload.Error)
			}
			if payload.Message != "" {
				return truncate(payload.Message)
			}
		}
	}

	if strings.HasPrefix(body, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err == nil {
			if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
				return truncate(title)
			}
			if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
				return truncate(h1)
			}
			return truncate(strings.Join(strings.Fields(doc.Find("body").Text()), " "))
		}
	}

	return truncate(strings.Join(strings.Fields(body), " "))
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageLen {
		return s
	}
	return string(r[:maxMessageLen]) + "..."
}
