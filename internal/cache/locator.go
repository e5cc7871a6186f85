package cache

import (
	"context"
	"os"
	"strings"
)

// Locator reports whether an output reference still resolves
type Locator interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

// FileLocator resolves refs as filesystem paths
type FileLocator struct{}

func (FileLocator) Exists(_ context.Context, ref string) (bool, error) {
	if ref == "" {
		return false, nil
	}
	_, err := os.Stat(ref)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// MultiLocator routes "scheme:rest" refs to a registered locator and
// everything else to the fallback.
type MultiLocator struct {
	schemes  map[string]Locator
	fallback Locator
}

// NewMultiLocator creates a router with FileLocator as fallback
func NewMultiLocator() *MultiLocator {
	return &MultiLocator{
		schemes:  make(map[string]Locator),
		fallback: FileLocator{},
	}
}

// Register adds a locator for refs prefixed with scheme + ":"
func (m *MultiLocator) Register(scheme string, loc Locator) *MultiLocator {
	m.schemes[scheme] = loc
	return m
}

func (m *MultiLocator) Exists(ctx context.Context, ref string) (bool, error) {
	if scheme, _, ok := strings.Cut(ref, ":"); ok {
		if loc, found := m.schemes[scheme]; found {
			return loc.Exists(ctx, ref)
		}
	}
	return m.fallback.Exists(ctx, ref)
}
