package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/mediaintake/internal/media"
)

// Selector delivers the files a user picked, from a dialog, a drop zone or
// a command line. It returns ErrSelectionCanceled when the user backs out.
type Selector interface {
	Select(ctx context.Context) ([]*media.File, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(ctx context.Context) ([]*media.File, error)

func (f SelectorFunc) Select(ctx context.Context) ([]*media.File, error) { return f(ctx) }

// StaticSelector always selects files.
func StaticSelector(files ...*media.File) Selector {
	return SelectorFunc(func(context.Context) ([]*media.File, error) { return files, nil })
}

// ProcessSelection runs a batch over whatever sel yields. A canceled or
// empty selection is not an error: it returns an empty result slice.
func (s *Service) ProcessSelection(ctx context.Context, sel Selector, opts Options) ([]Result, error) {
	files, err := sel.Select(ctx)
	if errors.Is(err, ErrSelectionCanceled) {
		s.logger.Debug("selection canceled")
		return []Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select files: %w", err)
	}
	if len(files) == 0 {
		return []Result{}, nil
	}
	return s.ProcessBatch(ctx, files, opts)
}
