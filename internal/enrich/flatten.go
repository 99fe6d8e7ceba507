package enrich

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/regioncheck/internal/region"
)

// InRegionColumn is the generated membership column in flattened output.
const InRegionColumn = "in_region"

// Flatten merges enriched results back onto the original rows. It returns
// one map per record plus the authoritative column order: the original
// columns first, then in_region, then each dataset's namespaced columns in
// registration order with keys in schema order. When a generated column
// name collides with an input column, the generated value wins and the
// column keeps its original position.
func Flatten(reg *region.Registry, records []AddressRecord, enriched []EnrichedRecord) ([]map[string]any, []string, error) {
	if len(records) != len(enriched) {
		return nil, nil, eris.Errorf("enrich: flatten: %d input records but %d enriched results", len(records), len(enriched))
	}

	columns := flattenColumns(reg, records)

	rows := make([]map[string]any, 0, len(records))
	for i, rec := range records {
		row := make(map[string]any, len(columns))
		for _, col := range rec.ColumnOrder {
			if v, ok := rec.Columns[col]; ok {
				row[col] = v
			} else {
				row[col] = nil
			}
		}
		row[InRegionColumn] = enriched[i].InRegion
		for k, v := range enriched[i].Region {
			row[k] = v
		}
		rows = append(rows, row)
	}

	return rows, columns, nil
}

func flattenColumns(reg *region.Registry, records []AddressRecord) []string {
	var columns []string
	seen := make(map[string]bool)

	if len(records) > 0 {
		for _, col := range records[0].ColumnOrder {
			if seen[col] {
				continue
			}
			seen[col] = true
			columns = append(columns, col)
		}
	}

	if !seen[InRegionColumn] {
		seen[InRegionColumn] = true
		columns = append(columns, InRegionColumn)
	}

	if reg != nil {
		for _, ds := range reg.List() {
			for _, key := range ds.Schema() {
				col := region.ColumnName(ds.Name(), key)
				if seen[col] {
					continue
				}
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}

	return columns
}
