package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// WriteCSV serializes a table to w.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile serializes a table to a file, replacing any previous export.
func WriteCSVFile(path string, t Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
