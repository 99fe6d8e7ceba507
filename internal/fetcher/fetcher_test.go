package fetcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www2.census.gov/geo/tiger/towns.zip", "http", false},
		{"http://example.com/shapes.zip", "http", false},
		{"ftp://ftp2.census.gov/geo/tiger/towns.zip", "ftp", false},
		{"s3://bucket/shapes.zip", "", true},
		{"://bad", "", true},
	}
	for _, tt := range tests {
		f, err := ForURL(tt.url, Options{})
		if tt.wantErr {
			if err == nil {
				t.Errorf("ForURL(%q): expected error", tt.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("ForURL(%q): %v", tt.url, err)
			continue
		}
		switch tt.want {
		case "http":
			if _, ok := f.(*HTTPFetcher); !ok {
				t.Errorf("ForURL(%q) = %T, want *HTTPFetcher", tt.url, f)
			}
		case "ftp":
			if _, ok := f.(*FTPFetcher); !ok {
				t.Errorf("ForURL(%q) = %T, want *FTPFetcher", tt.url, f)
			}
		}
	}
}

func TestSaveTo_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "file.zip")
	n, err := saveTo(path, strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestSaveTo_ParentIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := saveTo(filepath.Join(blocker, "file.zip"), strings.NewReader("payload"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create destination directory")
}
