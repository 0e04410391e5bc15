package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		want Kind
	}{
		{"jpeg by mime", Descriptor{Name: "a.bin", MimeType: "image/jpeg"}, Image},
		{"video by mime", Descriptor{Name: "clip", MimeType: "video/webm"}, Video},
		{"audio by mime", Descriptor{Name: "x", MimeType: "audio/mpeg"}, Audio},
		{"pdf exact", Descriptor{Name: "doc1.pdf", MimeType: "application/pdf"}, Document},
		{"text prefix", Descriptor{Name: "notes", MimeType: "text/x-whatever"}, Document},
		{"vnd prefix", Descriptor{Name: "sheet", MimeType: "application/vnd.custom-office"}, Document},
		{"rar before vnd prefix", Descriptor{Name: "a.rar", MimeType: "application/vnd.rar"}, Archive},
		{"zip exact", Descriptor{Name: "a.zip", MimeType: "application/zip"}, Archive},
		{"extension fallback", Descriptor{Name: "PHOTO.JPG", MimeType: OctetStream, Extension: "jpg"}, Image},
		{"extension fallback empty mime", Descriptor{Name: "song.flac", Extension: "flac"}, Audio},
		{"mime parameters ignored", Descriptor{Name: "a", MimeType: "text/plain; charset=utf-8"}, Document},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_FailsClosed(t *testing.T) {
	_, err := Classify(Descriptor{Name: "thing.xyz", MimeType: "application/x-unknown", Extension: "xyz"})
	assert.ErrorIs(t, err, ErrUnknownFileType)

	// A specific but unsupported MIME type does not fall through to the extension.
	_, err = Classify(Descriptor{Name: "a.jpg", MimeType: "application/x-unknown", Extension: "jpg"})
	assert.ErrorIs(t, err, ErrUnknownFileType)

	_, err = Classify(Descriptor{Name: "noext", MimeType: OctetStream})
	assert.ErrorIs(t, err, ErrUnknownFileType)
}

func TestClassify_Idempotent(t *testing.T) {
	d := NewDescriptor(NewFile("img1.jpg", "image/jpeg", []byte{0xff, 0xd8, 0xff}))
	first, err := Classify(d)
	require.NoError(t, err)
	second, err := Classify(d)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNewDescriptor(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")

	t.Run("declared type kept", func(t *testing.T) {
		d := NewDescriptor(NewFile("Report.PDF", "application/pdf", []byte("%PDF-1.4")))
		assert.Equal(t, "application/pdf", d.MimeType)
		assert.Equal(t, "pdf", d.Extension)
		assert.Equal(t, int64(8), d.SizeBytes)
	})

	t.Run("generic type sniffed", func(t *testing.T) {
		d := NewDescriptor(NewFile("upload", OctetStream, png))
		assert.Equal(t, "image/png", d.MimeType)
		assert.Equal(t, OctetStream, d.DeclaredMimeType)
	})

	t.Run("extension beats text/plain sniff", func(t *testing.T) {
		d := NewDescriptor(NewFile("table.csv", "", []byte("a,b\n1,2\n")))
		assert.Equal(t, "text/csv", d.MimeType)
	})

	t.Run("empty payload uses extension", func(t *testing.T) {
		d := NewDescriptor(NewFile("movie.mkv", "", nil))
		assert.Equal(t, "video/x-matroska", d.MimeType)
	})
}

func TestExtensionForMIME(t *testing.T) {
	assert.Equal(t, "jpg", ExtensionForMIME("image/jpeg"))
	assert.Equal(t, "webp", ExtensionForMIME("image/webp"))
	assert.Equal(t, "", ExtensionForMIME("application/x-nothing"))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Image")
	require.NoError(t, err)
	assert.Equal(t, Image, k)

	k, err = ParseKind("generic")
	require.NoError(t, err)
	assert.Equal(t, Generic, k)

	_, err = ParseKind("hologram")
	assert.Error(t, err)
}
