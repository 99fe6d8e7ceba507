package enrich

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// WriteJSON renders flattened rows as an indented JSON array. Nil values
// become null; object keys are alphabetical per encoding/json.
func WriteJSON(w io.Writer, rows []map[string]any) error {
	if rows == nil {
		rows = []map[string]any{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return eris.Wrap(err, "enrich: encode json")
	}
	return nil
}
