package entity

import "github.com/peekwez/docai/constants"

// Document is a raw payload submitted for extraction. Content is base64.
type Document struct {
	Content  string `json:"content"`
	MimeType string `json:"mime_type"`
}

func (d Document) IsText() bool  { return constants.IsText(d.MimeType) }
func (d Document) IsPDF() bool   { return constants.IsPDF(d.MimeType) }
func (d Document) IsImage() bool { return constants.IsImage(d.MimeType) }
