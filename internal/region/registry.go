package region

// Registry holds the loaded datasets. Registration order is preserved and
// drives output column order, so it is part of the contract, not an
// implementation detail. A Registry is not safe for concurrent mutation; it
// is read-only while a pipeline run is in flight.
type Registry struct {
	byName map[string]*Dataset
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Dataset)}
}

// Register adds a dataset, or replaces the dataset already registered under
// the same name. A replace keeps the original registration position.
func (r *Registry) Register(ds *Dataset) {
	if _, ok := r.byName[ds.Name()]; !ok {
		r.order = append(r.order, ds.Name())
	}
	r.byName[ds.Name()] = ds
}

// RegisterAll registers each dataset in order.
func (r *Registry) RegisterAll(datasets []*Dataset) {
	for _, ds := range datasets {
		r.Register(ds)
	}
}

// Get returns the dataset registered under name.
func (r *Registry) Get(name string) (*Dataset, bool) {
	ds, ok := r.byName[name]
	return ds, ok
}

// List returns all datasets in registration order.
func (r *Registry) List() []*Dataset {
	out := make([]*Dataset, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns the registered dataset names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered datasets.
func (r *Registry) Len() int { return len(r.order) }

// Reset removes every dataset. Full reset is the only removal path; there is
// no per-dataset delete.
func (r *Registry) Reset() {
	r.byName = make(map[string]*Dataset)
	r.order = nil
}
