package media

import (
	"fmt"
	"strings"
)

// Kind is one of the supported media categories.
type Kind string

const (
	// Generic is the rule scope that applies across every kind. It is never
	// the result of classification.
	Generic  Kind = ""
	Image    Kind = "image"
	Video    Kind = "video"
	Audio    Kind = "audio"
	Document Kind = "document"
	Archive  Kind = "archive"
)

// Kinds lists the classifiable kinds in their canonical order.
var Kinds = []Kind{Image, Video, Audio, Document, Archive}

func (k Kind) String() string {
	if k == Generic {
		return "generic"
	}
	return string(k)
}

// Valid reports whether k is a classifiable kind.
func (k Kind) Valid() bool {
	switch k {
	case Image, Video, Audio, Document, Archive:
		return true
	}
	return false
}

// ParseKind accepts a kind name as used in rule files. "generic" and the
// empty string both map to Generic.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", "generic":
		return Generic, nil
	case Image, Video, Audio, Document, Archive:
		return k, nil
	default:
		return Generic, fmt.Errorf("unknown media kind %q", s)
	}
}

// UnmarshalText lets Kind be decoded from YAML and env values.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
