package pipeline

import (
	"context"

	"github.com/rohankatakam/changerisk/internal/cache"
	"github.com/rohankatakam/changerisk/internal/output"
	"github.com/rohankatakam/changerisk/internal/risk"
	"github.com/rohankatakam/changerisk/internal/storage"
)

// cachedTables are the outputs a run records in the cache index
var cachedTables = []string{output.TableFileHotspots, output.TableBusFactor}

// loadCached rebuilds the report from cached outputs. It succeeds only when
// every table has a valid entry and loads cleanly; anything else is a miss.
func (r *Runner) loadCached(ctx context.Context, state cache.SnapshotState) (*risk.Report, map[string]string, bool) {
	if r.deps.Cache == nil {
		return nil, nil, false
	}

	refs := make(map[string]string, len(cachedTables))
	hit := true
	for _, table := range cachedTables {
		entry, ok := r.deps.Cache.Lookup(ctx, table, state)
		r.deps.Metrics.ObserveCache(table, ok)
		if !ok {
			hit = false
			continue
		}
		refs[table] = entry.OutputRef
	}
	if !hit {
		return nil, nil, false
	}

	report, err := r.reload(ctx, refs)
	if err != nil {
		r.deps.Logger.WithError(err).Warn("Failed to reload cached tables, recomputing")
		return nil, nil, false
	}
	return report, refs, true
}

func (r *Runner) reload(ctx context.Context, refs map[string]string) (*risk.Report, error) {
	filesRef := refs[output.TableFileHotspots]
	devRef := refs[output.TableBusFactor]

	if _, ok := storage.ParseRunRef(filesRef); ok && r.deps.Store != nil {
		return r.deps.Store.LoadRun(ctx, filesRef)
	}

	files, err := output.ReadFiles(filesRef)
	if err != nil {
		return nil, err
	}
	devs, err := output.ReadDevelopers(devRef)
	if err != nil {
		return nil, err
	}
	report := risk.FromRows(r.now(), files, devs)
	// the language table is optional; csv runs never reload it
	if langPath, err := output.SiblingPath(filesRef, output.TableLanguages); err == nil {
		if langs, err := output.ReadLanguages(langPath); err == nil {
			report.Languages = langs
		}
	}
	return report, nil
}
