package media

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// OctetStream is the MIME type browsers and HTTP clients send when they do
// not know better.
const OctetStream = "application/octet-stream"

// File is one caller-supplied input held in memory for the duration of a batch.
type File struct {
	Name     string
	MimeType string
	Data     []byte
	ModTime  time.Time
}

// NewFile wraps an in-memory payload.
func NewFile(name, mimeType string, data []byte) *File {
	return &File{Name: name, MimeType: mimeType, Data: data, ModTime: time.Now().UTC()}
}

// ReadFile loads a file from disk. The MIME type is left empty so the
// descriptor falls back to sniffing and the extension table.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	f := &File{Name: filepath.Base(path), Data: data, ModTime: time.Now().UTC()}
	if info, err := os.Stat(path); err == nil {
		f.ModTime = info.ModTime().UTC()
	}
	return f, nil
}

// FromMultipart reads an uploaded form file.
func FromMultipart(header *multipart.FileHeader) (*File, error) {
	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open form file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read form file: %w", err)
	}
	return NewFile(header.Filename, header.Header.Get("Content-Type"), data), nil
}

// Size returns the payload length in bytes.
func (f *File) Size() int64 { return int64(len(f.Data)) }

// Open returns a fresh reader over the payload.
func (f *File) Open() io.Reader { return bytes.NewReader(f.Data) }

// Extension returns the lower-cased extension without the leading dot.
func (f *File) Extension() string { return Extension(f.Name) }

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// Rename returns a copy of f with the base name kept and the extension
// replaced.
func (f *File) Rename(ext, mimeType string, data []byte) *File {
	base := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
	return &File{Name: base + "." + ext, MimeType: mimeType, Data: data, ModTime: time.Now().UTC()}
}

// Descriptor is the immutable snapshot taken once per input file.
type Descriptor struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	// MimeType is the type the pipeline works with: the declared one unless
	// it was empty or generic, in which case it is sniffed from content and
	// then looked up by extension.
	MimeType         string `json:"mime_type"`
	DeclaredMimeType string `json:"declared_mime_type,omitempty"`
	Extension        string `json:"extension"`
}

// NewDescriptor snapshots f.
func NewDescriptor(f *File) Descriptor {
	declared := normalizeMIME(f.MimeType)
	d := Descriptor{
		Name:             f.Name,
		SizeBytes:        f.Size(),
		MimeType:         declared,
		DeclaredMimeType: f.MimeType,
		Extension:        f.Extension(),
	}
	if !IsGenericMIME(declared) {
		return d
	}
	var sniffed string
	if len(f.Data) > 0 {
		sniffed = normalizeMIME(mimetype.Detect(f.Data).String())
	}
	// text/plain is mimetype's answer for anything printable, so a known
	// extension (csv, md, json) outranks it.
	switch byExt := MimeForExtension(d.Extension); {
	case !IsGenericMIME(sniffed) && sniffed != "text/plain":
		d.MimeType = sniffed
	case byExt != "":
		d.MimeType = byExt
	case sniffed == "text/plain":
		d.MimeType = sniffed
	}
	return d
}

// IsGenericMIME reports whether mimeType carries no useful type information.
func IsGenericMIME(mimeType string) bool {
	return mimeType == "" || mimeType == OctetStream
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.TrimSpace(strings.ToLower(mimeType))
	if mimeType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		return parsed
	}
	return mimeType
}
