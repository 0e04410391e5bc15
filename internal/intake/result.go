package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/mediaintake/internal/artifact"
	"github.com/your-org/mediaintake/internal/media"
)

var (
	// ErrNoFilesProvided is returned when a batch call receives no files.
	ErrNoFilesProvided = errors.New("no files provided")
	// ErrSelectionCanceled is returned by a Selector when the user backs out.
	ErrSelectionCanceled = errors.New("selection canceled")
)

// BatchError is a batch-level precondition violation. No file of the batch
// was processed.
type BatchError struct {
	Code    media.ErrorCode
	Message string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status tags a Result.
type Status string

const (
	StatusProcessed   Status = "processed"
	StatusUnprocessed Status = "unprocessed"
)

// Result is the outcome for one input file. Processed results carry the
// Processed artifact and possibly a Thumbnail; unprocessed results carry a
// Failure.
type Result struct {
	Status    Status             `json:"status"`
	Kind      media.Kind         `json:"kind,omitempty"`
	Source    media.Descriptor   `json:"source"`
	Original  *media.File        `json:"-"`
	Processed *artifact.Artifact `json:"processed,omitempty"`
	Thumbnail *artifact.Artifact `json:"thumbnail,omitempty"`
	Failure   *media.Failure     `json:"failure,omitempty"`
}

// OK reports whether the file was processed.
func (r Result) OK() bool { return r.Status == StatusProcessed }

func unprocessed(kind media.Kind, d media.Descriptor, f *media.File, failure media.Failure) Result {
	return Result{Status: StatusUnprocessed, Kind: kind, Source: d, Original: f, Failure: &failure}
}

// Release revokes every reference URL held by results. References are never
// revoked by the service itself: callers own them once a batch returns and
// call Release when the URLs are no longer in use.
func Release(ctx context.Context, results []Result) error {
	var errs []error
	for _, r := range results {
		for _, a := range []*artifact.Artifact{r.Processed, r.Thumbnail} {
			if a == nil {
				continue
			}
			if err := a.Reference.Revoke(ctx); err != nil {
				errs = append(errs, fmt.Errorf("revoke %s: %w", a.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}
