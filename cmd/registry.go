package main

import (
	"context"

	"github.com/sells-group/regioncheck/internal/region"
	"github.com/sells-group/regioncheck/internal/shapeload"
)

// loadRegistry builds the dataset registry for one command invocation.
// Flag values override config, and a manifest wins over bare shape paths.
func loadRegistry(ctx context.Context, shapes []string, manifest string) (*region.Registry, error) {
	if manifest == "" && len(shapes) == 0 {
		manifest = cfg.Shapes.Manifest
		if manifest == "" {
			shapes = []string{cfg.Shapes.Dir}
		}
	}

	reg := region.NewRegistry()

	if manifest != "" {
		m, err := shapeload.ReadManifest(manifest)
		if err != nil {
			return nil, err
		}
		if err := shapeload.Preload(ctx, reg, m); err != nil {
			return nil, err
		}
		return reg, nil
	}

	for _, path := range shapes {
		datasets, err := shapeload.Load(path)
		if err != nil {
			return nil, err
		}
		reg.RegisterAll(datasets)
	}

	return reg, nil
}
