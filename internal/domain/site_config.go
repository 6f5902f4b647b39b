package domain

import "strings"

// SiteConfig is the process-wide storefront configuration kept by the backend
type SiteConfig struct {
	WhatsApp string `json:"whatsapp"`
}

// Contact returns the trimmed WhatsApp number
func (c SiteConfig) Contact() string {
	return strings.TrimSpace(c.WhatsApp)
}
