package shapeload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regioncheck/internal/region"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shapes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadManifest(t *testing.T) {
	path := writeManifest(t, `
datasets:
  - folder: shapes/ri
    name: rhode_island
  - folder: shapes/zips.zip
`)

	m, err := ReadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Datasets, 2)
	assert.Equal(t, "shapes/ri", m.Datasets[0].Folder)
	assert.Equal(t, "rhode_island", m.Datasets[0].Name)
	assert.Equal(t, "shapes/zips.zip", m.Datasets[1].Folder)
	assert.Empty(t, m.Datasets[1].Name)
}

func TestReadManifest_NoDatasets(t *testing.T) {
	path := writeManifest(t, "datasets: []\n")

	_, err := ReadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest lists no datasets")
}

func TestReadManifest_MissingFile(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read manifest")
}

func TestReadManifest_BadYAML(t *testing.T) {
	path := writeManifest(t, "datasets: [unclosed\n")

	_, err := ReadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse manifest")
}

func TestPreload_RegistersInManifestOrder(t *testing.T) {
	dirB := t.TempDir()
	writeTownsShapefile(t, dirB, "beta.shp")
	dirA := t.TempDir()
	writeTownsShapefile(t, dirA, "alpha.shp")

	m := &Manifest{Datasets: []ManifestEntry{
		{Folder: dirB},
		{Folder: dirA},
	}}

	reg := region.NewRegistry()
	require.NoError(t, Preload(t.Context(), reg, m))

	assert.Equal(t, []string{"beta", "alpha"}, reg.Names())
}

func TestPreload_NameOverride(t *testing.T) {
	dir := t.TempDir()
	writeTownsShapefile(t, dir, "tl_2024_44_cousub.shp")

	m := &Manifest{Datasets: []ManifestEntry{
		{Folder: dir, Name: "ri_towns"},
	}}

	reg := region.NewRegistry()
	require.NoError(t, Preload(t.Context(), reg, m))

	require.Equal(t, []string{"ri_towns"}, reg.Names())
	ds, ok := reg.Get("ri_towns")
	require.True(t, ok)
	assert.Equal(t, 2, ds.Len())
}

func TestPreload_OverrideIgnoredForMultiDataset(t *testing.T) {
	dir := t.TempDir()
	writeTownsShapefile(t, dir, "towns.shp")
	writeTownsShapefile(t, dir, "zips.shp")

	m := &Manifest{Datasets: []ManifestEntry{
		{Folder: dir, Name: "combined"},
	}}

	reg := region.NewRegistry()
	require.NoError(t, Preload(t.Context(), reg, m))

	assert.Equal(t, []string{"towns", "zips"}, reg.Names())
	_, ok := reg.Get("combined")
	assert.False(t, ok)
}

func TestPreload_ErrorNamesEntry(t *testing.T) {
	m := &Manifest{Datasets: []ManifestEntry{
		{Folder: filepath.Join(t.TempDir(), "missing")},
	}}

	err := Preload(t.Context(), region.NewRegistry(), m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest entry 0")
}

func TestPreload_MixedSources(t *testing.T) {
	src := t.TempDir()
	writeTownsShapefile(t, src, "towns.shp")
	zipPath := filepath.Join(t.TempDir(), "zips.zip")
	writeZipOf(t, zipPath, src)

	dir := t.TempDir()
	writeTownsShapefile(t, dir, "counties.shp")

	m := &Manifest{Datasets: []ManifestEntry{
		{Folder: dir},
		{Folder: zipPath, Name: "zip_towns"},
	}}

	reg := region.NewRegistry()
	require.NoError(t, Preload(t.Context(), reg, m))

	assert.Equal(t, []string{"counties", "zip_towns"}, reg.Names())
}
