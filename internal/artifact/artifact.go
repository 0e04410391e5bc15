// Package artifact builds the output representations of processed payloads
// and owns the reference URLs handed to callers.
package artifact

import (
	"bytes"
	"encoding/base64"
	"io"

	"github.com/your-org/mediaintake/internal/media"
)

// Role says which payload of a result an artifact represents.
type Role string

const (
	RoleProcessed Role = "processed"
	RoleThumbnail Role = "thumbnail"
)

// Blob is an immutable typed byte payload.
type Blob struct {
	mimeType string
	data     []byte
}

// NewBlob wraps data. The slice must not be modified afterwards.
func NewBlob(mimeType string, data []byte) *Blob {
	return &Blob{mimeType: mimeType, data: data}
}

func (b *Blob) Type() string      { return b.mimeType }
func (b *Blob) Size() int64       { return int64(len(b.data)) }
func (b *Blob) Bytes() []byte     { return b.data }
func (b *Blob) Reader() io.Reader { return bytes.NewReader(b.data) }

// Artifact is one output representation of a payload. Name, size, type and
// extension are always set. The raw File is always retained; the other
// representations depend on the rule that produced it.
type Artifact struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	Extension string `json:"extension"`

	Base64       string `json:"base64,omitempty"`
	ReferenceURL string `json:"reference_url,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`

	Blob      *Blob       `json:"-"`
	File      *media.File `json:"-"`
	Reference *Reference  `json:"-"`
}

// DataURL renders the payload as a data: URL. It encodes on demand when no
// base64 form was generated.
func (a *Artifact) DataURL() string {
	enc := a.Base64
	if enc == "" && a.File != nil {
		enc = base64.StdEncoding.EncodeToString(a.File.Data)
	}
	return "data:" + a.MimeType + ";base64," + enc
}

// Bytes returns the raw payload.
func (a *Artifact) Bytes() []byte {
	if a.File == nil {
		return nil
	}
	return a.File.Data
}
