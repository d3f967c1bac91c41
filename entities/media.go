package entities

import "strings"

// MediaBlob is a raw media payload submitted by a client, together with its
// declared MIME type. The pipeline only ever reads a blob; the submitting
// caller keeps ownership.
type MediaBlob struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

func (mb *MediaBlob) Size() int {
	return len(mb.Data)
}

func (mb *MediaBlob) IsVideo() bool {
	return strings.HasPrefix(mb.MimeType, "video/")
}

func (mb *MediaBlob) IsImage() bool {
	return strings.HasPrefix(mb.MimeType, "image/")
}
