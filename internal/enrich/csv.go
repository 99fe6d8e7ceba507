package enrich

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// AddressColumn is the required input column holding the address to geocode.
// Matching is case-insensitive on the trimmed header name.
const AddressColumn = "address"

// ReadAddressCSV loads address records from a CSV file. The header must
// contain an address column; every other column is carried through to the
// export untouched. Rows with an empty address cell are kept and simply
// never resolve to a point.
func ReadAddressCSV(path string) ([]AddressRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: open csv")
	}
	defer f.Close()

	return ReadAddresses(f)
}

// ReadAddresses reads CSV address records from r, with the same column
// rules as ReadAddressCSV.
func ReadAddresses(r io.Reader) ([]AddressRecord, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "enrich: read csv")
	}

	return recordsFromRows(rows)
}

// recordsFromRows converts a header row plus data rows into address records.
func recordsFromRows(rows [][]string) ([]AddressRecord, error) {
	if len(rows) == 0 {
		return nil, eris.New("enrich: input has no header row")
	}

	header := rows[0]
	order := make([]string, len(header))
	addressIdx := -1
	for i, col := range header {
		name := strings.TrimSpace(col)
		order[i] = name
		if addressIdx == -1 && strings.EqualFold(name, AddressColumn) {
			addressIdx = i
		}
	}
	if addressIdx == -1 {
		return nil, eris.Errorf("enrich: missing required column %q", AddressColumn)
	}

	if len(rows) < 2 {
		return nil, eris.New("enrich: input has no data rows")
	}

	records := make([]AddressRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cols := make(map[string]string, len(order))
		for i, name := range order {
			if i < len(row) {
				cols[name] = strings.TrimSpace(row[i])
			} else {
				cols[name] = ""
			}
		}
		var address string
		if addressIdx < len(row) {
			address = strings.TrimSpace(row[addressIdx])
		}
		records = append(records, AddressRecord{
			Address:     address,
			Columns:     cols,
			ColumnOrder: order,
		})
	}

	return records, nil
}

// WriteCSV writes flattened rows to path in the given column order. Nil
// values render as empty cells.
func WriteCSV(path string, rows []map[string]any, columns []string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "enrich: create csv")
	}
	defer f.Close()

	return WriteCSVTo(f, rows, columns)
}

// WriteCSVTo streams flattened rows to w in the given column order.
func WriteCSVTo(out io.Writer, rows []map[string]any, columns []string) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write(columns); err != nil {
		return eris.Wrap(err, "enrich: write csv header")
	}

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = cellString(row[col])
		}
		if err := w.Write(cells); err != nil {
			return eris.Wrap(err, "enrich: write csv row")
		}
	}

	return nil
}

// cellString renders a flattened value for CSV and XLSX cells.
func cellString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
