package git

import (
	"context"
	"fmt"

	"github.com/rohankatakam/changerisk/internal/history"
)

// FetchContent returns the content of path at ref. Any git failure, such as
// a path missing at that ref, maps to history.ErrContentUnavailable.
func (r *Repo) FetchContent(ctx context.Context, ref, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, err := r.run(ctx, "show", ref+":"+path)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s@%s: %v", history.ErrContentUnavailable, path, ref, err)
	}
	return out, nil
}
