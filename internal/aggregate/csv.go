package aggregate

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// LoadCSV reads one or more CSV files into a single frame. Every file must
// share the header of the first; rows are concatenated in file order.
func LoadCSV(paths []string) (*Frame, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("aggregate: no input files")
	}

	var frame *Frame
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("aggregate: open %s: %w", path, err)
		}
		records, err := csv.NewReader(f).ReadAll()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("aggregate: parse %s: %w", path, err)
		}
		if len(records) == 0 {
			continue
		}

		header, rows := records[0], records[1:]
		if frame == nil {
			frame = &Frame{Columns: header}
		} else if !equalHeader(frame.Columns, header) {
			return nil, fmt.Errorf("aggregate: %s header %v does not match %v", path, header, frame.Columns)
		}
		frame.Rows = append(frame.Rows, rows...)
	}

	if frame == nil {
		return nil, fmt.Errorf("aggregate: all input files empty")
	}
	return frame, nil
}

// WriteCSV writes the frame to path, creating parent directories.
func WriteCSV(frame *Frame, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("aggregate: create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("aggregate: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(frame.Columns); err != nil {
		return err
	}
	for _, row := range frame.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
