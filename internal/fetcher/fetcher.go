// Package fetcher downloads shapefile archives over HTTP and FTP and
// extracts them locally.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote archives.
type Fetcher interface {
	// Download fetches the URL and returns the response body. The caller
	// must close it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to path, creating
	// parent directories as needed. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Options bundles per-protocol settings for ForURL. The zero value uses
// the protocol defaults.
type Options struct {
	HTTP HTTPOptions
	FTP  FTPOptions
}

// ForURL returns a fetcher matching the URL's scheme.
func ForURL(rawURL string, opts Options) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "parse url %s", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return NewHTTPFetcher(opts.HTTP), nil
	case "ftp":
		return NewFTPFetcher(opts.FTP), nil
	default:
		return nil, eris.Errorf("unsupported url scheme %q", u.Scheme)
	}
}

// saveTo writes r to path, creating parent directories first.
func saveTo(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "create destination directory")
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, r)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	return n, nil
}
