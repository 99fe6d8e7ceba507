package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(townsDataset(t))

	zips, err := NewDataset("zips", nil)
	require.NoError(t, err)
	r.Register(zips)

	assert.Equal(t, []string{"towns", "zips"}, r.Names())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_ReplaceKeepsPosition(t *testing.T) {
	r := NewRegistry()
	r.Register(townsDataset(t))

	zips, err := NewDataset("zips", nil)
	require.NoError(t, err)
	r.Register(zips)

	replacement := townsDataset(t, townFeature("Springfield", 30700, square(0, 0, 1, 1)))
	r.Register(replacement)

	assert.Equal(t, []string{"towns", "zips"}, r.Names())

	got, ok := r.Get("towns")
	require.True(t, ok)
	assert.Equal(t, 1, got.Len())
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Get("towns")
	assert.False(t, ok)
}

func TestRegistry_ListFollowsOrder(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"c", "a", "b"} {
		ds, err := NewDataset(name, nil)
		require.NoError(t, err)
		r.Register(ds)
	}

	var names []string
	for _, ds := range r.List() {
		names = append(names, ds.Name())
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	r.Register(townsDataset(t))
	r.Reset()

	assert.Equal(t, 0, r.Len())
	_, ok := r.Get("towns")
	assert.False(t, ok)
}
