// Package shapeload reads polygon datasets from shapefiles on disk, in
// directory trees, or inside zip archives, and registers them for
// point-in-polygon matching.
package shapeload

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regioncheck/internal/fetcher"
	"github.com/sells-group/regioncheck/internal/region"
)

// Load reads datasets from path, which may be a directory tree, a .zip
// archive, or a single .shp file.
func Load(path string) ([]*region.Dataset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeload: stat %s", path)
	}
	if info.IsDir() {
		return LoadDir(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return LoadArchive(path)
	case ".shp":
		name := datasetName(filepath.Dir(path), path)
		ds, err := ParseShapefile(path, name)
		if err != nil {
			return nil, err
		}
		return []*region.Dataset{ds}, nil
	default:
		return nil, eris.Errorf("shapeload: unsupported path %s (want directory, .zip, or .shp)", path)
	}
}

// LoadDir walks root and parses every shapefile under it. Dataset names
// come from the path relative to root, so walk order makes them
// deterministic.
func LoadDir(root string) ([]*region.Dataset, error) {
	var datasets []*region.Dataset
	seen := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".shp") {
			return nil
		}

		name := datasetName(root, path)
		if prev, ok := seen[name]; ok {
			return eris.Errorf("shapeload: duplicate dataset name %q (%s and %s)", name, prev, path)
		}
		seen[name] = path

		ds, err := ParseShapefile(path, name)
		if err != nil {
			return err
		}
		datasets = append(datasets, ds)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "shapeload: walk %s", root)
	}

	if len(datasets) == 0 {
		return nil, eris.Errorf("shapeload: no shapefiles under %s", root)
	}

	zap.L().Info("loaded shapefile datasets",
		zap.String("root", root),
		zap.Int("datasets", len(datasets)),
	)
	return datasets, nil
}

// LoadArchive extracts a zip archive to a temporary directory and loads
// every shapefile it contains.
func LoadArchive(zipPath string) ([]*region.Dataset, error) {
	tmpDir, err := os.MkdirTemp("", "regioncheck-shapes-")
	if err != nil {
		return nil, eris.Wrap(err, "shapeload: create extraction dir")
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	if _, err := fetcher.ExtractZIP(zipPath, tmpDir); err != nil {
		return nil, eris.Wrapf(err, "shapeload: extract archive %s", zipPath)
	}

	datasets, err := LoadDir(tmpDir)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeload: archive %s", zipPath)
	}
	return datasets, nil
}

// datasetName derives a dataset name from a shapefile path: the path
// relative to root, extension dropped, separators joined with "_".
func datasetName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(filepath.ToSlash(rel), "/")
	return strings.Join(parts, "_")
}
