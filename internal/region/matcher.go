package region

import (
	"github.com/rotisserie/eris"
)

// MatchOutcome is the result of testing one point against one dataset. Props
// always holds exactly one entry per key in the dataset's schema, under the
// namespaced column name, nil when there was no match or the matched feature
// lacks the key.
type MatchOutcome struct {
	Matched bool
	Props   map[string]any
}

// Match tests pt against every feature of ds. A nil pt (absent geocode) is a
// valid input and yields an all-nil no-match without touching geometry. When
// several features contain the point, the LAST matching feature in stored
// order supplies the property values. Match is pure: identical inputs yield
// identical outcomes.
func Match(pt *Point, ds *Dataset) (MatchOutcome, error) {
	out := MatchOutcome{Props: make(map[string]any, len(ds.Schema()))}
	for _, key := range ds.Schema() {
		out.Props[ColumnName(ds.Name(), key)] = nil
	}

	if pt == nil {
		return out, nil
	}

	features := ds.Features()
	for i := range features {
		hit, err := contains(features[i].Geom, *pt)
		if err != nil {
			return MatchOutcome{}, eris.Wrapf(err, "region: dataset %q feature %d", ds.Name(), i)
		}
		if !hit {
			continue
		}

		out.Matched = true
		// Reset before copying so schema keys missing on this feature go
		// back to nil (the last match fully replaces earlier ones).
		for _, key := range ds.Schema() {
			out.Props[ColumnName(ds.Name(), key)] = nil
		}
		for _, p := range features[i].Props {
			col := ColumnName(ds.Name(), p.Key)
			if _, ok := out.Props[col]; ok {
				out.Props[col] = p.Value
			}
		}
	}

	return out, nil
}
