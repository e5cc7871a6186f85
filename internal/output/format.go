package output

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the on-disk encoding of a table
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Table names. They double as cache entry names.
const (
	TableFileHotspots = "file_hotspots"
	TableBusFactor    = "bus_factor"
	TableLanguages    = "language_complexity"
)

const compressedExt = ".zst"

// ParseFormat validates a format name ("yml" is accepted for yaml)
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want csv, json or yaml)", s)
	}
}

// TablePath returns <dir>/<table>.<format>[.zst]
func TablePath(dir, table string, format Format, compress bool) string {
	name := table + "." + string(format)
	if compress {
		name += compressedExt
	}
	return filepath.Join(dir, name)
}

// formatOf infers the format and compression of a table file from its name
func formatOf(path string) (Format, bool, error) {
	base := filepath.Base(path)
	compressed := strings.HasSuffix(base, compressedExt)
	base = strings.TrimSuffix(base, compressedExt)

	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	if ext == "" {
		return "", false, fmt.Errorf("no format extension on %s", path)
	}
	format, err := ParseFormat(ext)
	return format, compressed, err
}

// SiblingPath returns the path table would have if written by the same
// writer that produced path
func SiblingPath(path, table string) (string, error) {
	format, compressed, err := formatOf(path)
	if err != nil {
		return "", err
	}
	return TablePath(filepath.Dir(path), table, format, compressed), nil
}
