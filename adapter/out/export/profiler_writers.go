// Package export renders consolidated profile tables for files and downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"mailprofiler/core/domain"
	"mailprofiler/core/service/pipeline"
)

// WriteCSV writes the profile table with the fixed domain.ProfileColumns
// header. Rows arrive already sorted by identity from consolidation.
func WriteCSV(w io.Writer, profiles []domain.ConsolidatedProfile) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.ProfileColumns); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for i := range profiles {
		if err := cw.Write(profiles[i].Row()); err != nil {
			return fmt.Errorf("export: write row %s: %w", profiles[i].Identity, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

// WriteJSON writes the full run result, indented for reading by hand.
func WriteJSON(w io.Writer, result *pipeline.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("export: encode result: %w", err)
	}
	return nil
}
