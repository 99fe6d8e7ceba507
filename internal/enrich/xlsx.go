package enrich

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadAddressXLSX loads address records from a spreadsheet. The first sheet
// is used unless sheet names one explicitly. Input rules match
// ReadAddressCSV.
func ReadAddressXLSX(path, sheet string) ([]AddressRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: open xlsx")
	}

	s, err := pickSheet(f, sheet)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		rows = append(rows, cells)
	}

	return recordsFromRows(rows)
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		s, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("enrich: sheet %q not found", name)
		}
		return s, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("enrich: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

// WriteXLSX writes flattened rows to a single-sheet workbook in the given
// column order. Nil values render as empty cells.
func WriteXLSX(path string, rows []map[string]any, columns []string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Results")
	if err != nil {
		return eris.Wrap(err, "enrich: add sheet")
	}

	hdr := sheet.AddRow()
	for _, col := range columns {
		hdr.AddCell().Value = col
	}

	for _, row := range rows {
		r := sheet.AddRow()
		for _, col := range columns {
			r.AddCell().Value = cellString(row[col])
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "enrich: save xlsx")
	}
	return nil
}
