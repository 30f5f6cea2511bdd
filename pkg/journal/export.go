package journal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes events as an indented JSON array.
func WriteJSON(w io.Writer, events []Event) error {
	if events == nil {
		events = []Event{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return fmt.Errorf("journal: failed to encode events: %w", err)
	}
	return nil
}

// WriteCSV writes one row per event. Fields that a spreadsheet would
// evaluate as a formula are prefixed with a quote.
func WriteCSV(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "operation", "result", "account", "error"}); err != nil {
		return err
	}
	for _, e := range events {
		row := []string{e.Timestamp, e.Operation, e.Result, e.Account, e.Error}
		for i := range row {
			row[i] = neutralize(row[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func neutralize(field string) string {
	if field == "" {
		return field
	}
	switch field[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + field
	}
	return field
}
