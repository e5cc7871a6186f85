package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/rohankatakam/changerisk/internal/risk"
	"gopkg.in/yaml.v3"
)

// ErrNotReadable is returned for tables that have no reader for their format
var ErrNotReadable = errors.New("output format is not readable")

// ReadFiles loads a file-risk table written by Writer. CSV tables load with
// the precision they were written with.
func ReadFiles(path string) ([]risk.FileRow, error) {
	var rows []risk.FileRow
	err := readTable(path, &rows, func(r io.Reader) error {
		var err error
		rows, err = readFileCSV(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadDevelopers loads a developer-risk table written by Writer. CSV
// exclusive lists come back truncated.
func ReadDevelopers(path string) ([]risk.DeveloperRow, error) {
	var rows []risk.DeveloperRow
	err := readTable(path, &rows, func(r io.Reader) error {
		var err error
		rows, err = readDeveloperCSV(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadLanguages loads a language table written as json or yaml
func ReadLanguages(path string) ([]risk.LanguageRow, error) {
	var rows []risk.LanguageRow
	if err := readTable(path, &rows, nil); err != nil {
		return nil, err
	}
	return rows, nil
}

func readTable(path string, dst any, csvFn func(io.Reader) error) error {
	format, compressed, err := formatOf(path)
	if err != nil {
		return err
	}
	if format == FormatCSV && csvFn == nil {
		return fmt.Errorf("%s: %w", path, ErrNotReadable)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var in io.Reader = f
	if compressed {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return err
		}
		defer dec.Close()
		in = dec
	}

	switch format {
	case FormatCSV:
		err = csvFn(in)
	case FormatJSON:
		err = json.NewDecoder(in).Decode(dst)
	case FormatYAML:
		err = yaml.NewDecoder(in).Decode(dst)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
