package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rohankatakam/changerisk/internal/risk"
	"gopkg.in/yaml.v3"
)

// Writer persists report tables into a directory
type Writer struct {
	dir      string
	format   Format
	compress bool
}

// NewWriter returns a writer for dir. The directory is created on first write.
func NewWriter(dir string, format Format, compress bool) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	return &Writer{dir: dir, format: format, compress: compress}, nil
}

// Path returns where table is written
func (w *Writer) Path(table string) string {
	return TablePath(w.dir, table, w.format, w.compress)
}

// Written maps table names to the files a Write produced
type Written map[string]string

// Write stores the file, developer and language tables. Empty tables are
// skipped so that a stale file never masquerades as a result.
func (w *Writer) Write(report *risk.Report) (Written, error) {
	out := Written{}
	if len(report.Files) > 0 {
		path, err := w.WriteFiles(report.Files)
		if err != nil {
			return out, err
		}
		out[TableFileHotspots] = path
	}
	if len(report.Developers) > 0 {
		path, err := w.WriteDevelopers(report.Developers)
		if err != nil {
			return out, err
		}
		out[TableBusFactor] = path
	}
	if len(report.Languages) > 0 {
		path, err := w.WriteLanguages(report.Languages)
		if err != nil {
			return out, err
		}
		out[TableLanguages] = path
	}
	return out, nil
}

// WriteFiles writes the file-risk table
func (w *Writer) WriteFiles(rows []risk.FileRow) (string, error) {
	return w.writeTable(TableFileHotspots, rows, func(out io.Writer) error {
		return writeFileCSV(out, rows)
	})
}

// WriteDevelopers writes the developer-risk table
func (w *Writer) WriteDevelopers(rows []risk.DeveloperRow) (string, error) {
	return w.writeTable(TableBusFactor, rows, func(out io.Writer) error {
		return writeDeveloperCSV(out, rows)
	})
}

// WriteLanguages writes the per-language complexity table
func (w *Writer) WriteLanguages(rows []risk.LanguageRow) (string, error) {
	return w.writeTable(TableLanguages, rows, func(out io.Writer) error {
		return writeLanguageCSV(out, rows)
	})
}

func (w *Writer) writeTable(table string, rows any, csvFn func(io.Writer) error) (string, error) {
	path := w.Path(table)
	err := writeAtomic(path, func(f io.Writer) error {
		out := f
		var enc *zstd.Encoder
		if w.compress {
			var err error
			enc, err = zstd.NewWriter(f)
			if err != nil {
				return err
			}
			out = enc
		}

		if err := encode(out, w.format, rows, csvFn); err != nil {
			if enc != nil {
				enc.Close()
			}
			return err
		}
		if enc != nil {
			return enc.Close()
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("write %s: %w", table, err)
	}
	return path, nil
}

func encode(out io.Writer, format Format, rows any, csvFn func(io.Writer) error) error {
	switch format {
	case FormatCSV:
		return csvFn(out)
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writeAtomic writes through a temp file in the target directory and renames
// it into place, so readers never observe a partial table.
func writeAtomic(path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
