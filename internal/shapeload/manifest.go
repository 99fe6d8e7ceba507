package shapeload

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/regioncheck/internal/region"
)

// preloadWorkers caps how many shapefile sources parse at once.
const preloadWorkers = 4

// Manifest lists the shapefile sources to load on startup.
type Manifest struct {
	Datasets []ManifestEntry `yaml:"datasets"`
}

// ManifestEntry points at one shapefile source. Folder may be a
// directory, a .zip archive, or a single .shp file. Name, when set,
// renames a single-dataset source.
type ManifestEntry struct {
	Folder string `yaml:"folder"`
	Name   string `yaml:"name"`
}

// ReadManifest reads a manifest from a YAML file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapeload: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "shapeload: parse manifest %s", path)
	}
	if len(m.Datasets) == 0 {
		return nil, eris.New("shapeload: manifest lists no datasets")
	}
	return &m, nil
}

// Preload parses every manifest entry and registers the results. Entries
// parse concurrently, but registration keeps manifest order so derived
// output columns are stable across runs.
func Preload(ctx context.Context, reg *region.Registry, m *Manifest) error {
	log := zap.L().With(zap.String("component", "shapeload.preload"))

	results := make([][]*region.Dataset, len(m.Datasets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadWorkers)
	for i, entry := range m.Datasets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			datasets, err := Load(entry.Folder)
			if err != nil {
				return eris.Wrapf(err, "shapeload: manifest entry %d (%s)", i, entry.Folder)
			}

			if entry.Name != "" {
				if len(datasets) == 1 {
					renamed, err := region.NewDataset(entry.Name, datasets[0].Features())
					if err != nil {
						return eris.Wrapf(err, "shapeload: manifest entry %d (%s)", i, entry.Folder)
					}
					datasets[0] = renamed
				} else {
					log.Warn("name override ignored for multi-dataset entry",
						zap.String("folder", entry.Folder),
						zap.String("name", entry.Name),
						zap.Int("datasets", len(datasets)),
					)
				}
			}

			results[i] = datasets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := 0
	for _, datasets := range results {
		reg.RegisterAll(datasets)
		total += len(datasets)
	}

	log.Info("preloaded datasets",
		zap.Int("entries", len(m.Datasets)),
		zap.Int("datasets", total),
	)
	return nil
}
