package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchMIME(t *testing.T) {
	tests := []struct {
		pattern, mime string
		want          bool
	}{
		{"image/*", "image/png", true},
		{"image/*", "IMAGE/PNG", true},
		{"image/*", "video/mp4", false},
		{"image/*", "imagex/png", false},
		{"*", "application/zip", true},
		{"*/*", "text/plain", true},
		{"*", "", false},
		{"application/pdf", "application/pdf", true},
		{"application/pdf", "application/pdfx", false},
		{"application/vnd.ms-*", "application/vnd.ms-excel", true},
		{"application/vnd.ms-*", "application/vnd.oasis.opendocument.text", false},
		{"text/plain", "text/plain; charset=utf-8", true},
		{"", "image/png", false},
		{".png", "image/png", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchMIME(tt.pattern, tt.mime), "%q vs %q", tt.pattern, tt.mime)
	}
}

func TestMatchAny_Extensions(t *testing.T) {
	d := Descriptor{Name: "IMG.HEIC", MimeType: "image/heic", Extension: "heic"}
	assert.True(t, MatchAny([]string{".HEIC"}, d))
	assert.True(t, MatchAny([]string{"video/*", "image/heic"}, d))
	assert.False(t, MatchAny([]string{".jpg", "video/*"}, d))
	assert.False(t, MatchAny(nil, d))
}
