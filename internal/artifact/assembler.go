package artifact

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/your-org/mediaintake/internal/media"
	"github.com/your-org/mediaintake/internal/rules"
)

// DefaultBase64Cutoff is the payload size above which base64 is not
// generated for processed artifacts.
const DefaultBase64Cutoff = 10 << 20

// MetaBase64Skipped is set on artifacts whose base64 form was requested
// but withheld by the size cutoff.
const MetaBase64Skipped = "base64_skipped_bytes"

// Assembler turns finalised payloads into artifacts.
type Assembler struct {
	// Registry issues reference URLs. Nil disables them.
	Registry Registry
	// Base64Cutoff limits base64 synthesis for processed payloads of every
	// kind. Thumbnails are exempt. Zero disables the limit.
	Base64Cutoff int64
}

// NewAssembler creates an assembler with the default cutoff.
func NewAssembler(registry Registry) *Assembler {
	return &Assembler{Registry: registry, Base64Cutoff: DefaultBase64Cutoff}
}

// Build creates the artifact for f. The populated field set depends only on
// role, size and the rule's generate flags.
func (a *Assembler) Build(ctx context.Context, kind media.Kind, role Role, f *media.File, r rules.Rule, meta map[string]string) (*Artifact, error) {
	d := media.NewDescriptor(f)
	art := &Artifact{
		Name:      f.Name,
		SizeBytes: f.Size(),
		MimeType:  d.MimeType,
		Extension: d.Extension,
		File:      f,
	}
	if len(meta) > 0 {
		art.Metadata = make(map[string]string, len(meta))
		for k, v := range meta {
			art.Metadata[k] = v
		}
	}

	if r.GenerateBase64 {
		if a.base64Allowed(role, f.Size()) {
			art.Base64 = base64.StdEncoding.EncodeToString(f.Data)
		} else {
			if art.Metadata == nil {
				art.Metadata = map[string]string{}
			}
			art.Metadata[MetaBase64Skipped] = strconv.FormatInt(f.Size(), 10)
		}
	}
	if r.GenerateBlob {
		art.Blob = NewBlob(art.MimeType, f.Data)
	}

	if a.Registry != nil {
		data := f.Data
		if art.Blob != nil {
			data = art.Blob.Bytes()
		}
		ref, err := a.Registry.Create(ctx, art.Name, art.MimeType, data)
		if err != nil {
			return nil, fmt.Errorf("create reference: %w", err)
		}
		art.Reference = ref
		art.ReferenceURL = ref.URL
	}
	return art, nil
}

func (a *Assembler) base64Allowed(role Role, size int64) bool {
	if role == RoleThumbnail || a.Base64Cutoff <= 0 {
		return true
	}
	return size <= a.Base64Cutoff
}
