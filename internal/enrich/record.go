// Package enrich runs address records through geocoding and region matching,
// then flattens the results for tabular export.
package enrich

import "time"

// AddressRecord is one input row: the address to geocode plus every other
// column from the source file, carried through untouched.
type AddressRecord struct {
	Address     string
	Columns     map[string]string
	ColumnOrder []string
}

// EnrichedRecord pairs an input record with its region membership results.
// Region holds one entry per namespaced dataset column; the key set is
// identical for every record of a run, with nil for non-matches.
type EnrichedRecord struct {
	Record   AddressRecord
	InRegion bool
	Region   map[string]any
}

// RunSummary totals a pipeline run. Total counts processed records, which
// is less than the input count when a run is cancelled partway.
type RunSummary struct {
	Total    int
	Found    int
	NotFound int
	Elapsed  time.Duration
}
