package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regioncheck/internal/resilience"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout    time.Duration
	MaxRetries int
	RetryWait  time.Duration // base backoff between attempts
}

// FTPFetcher downloads archives from anonymous FTP servers, which is how
// the Census Bureau still mirrors TIGER/Line.
type FTPFetcher struct {
	opts  FTPOptions
	retry resilience.Policy
}

// NewFTPFetcher creates an FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryWait == 0 {
		opts.RetryWait = time.Second
	}
	return &FTPFetcher{
		opts:  opts,
		retry: resilience.Policy{MaxAttempts: opts.MaxRetries, BaseWait: opts.RetryWait},
	}
}

// parseFTPURL splits an FTP URL into host:port and path.
func parseFTPURL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host := u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}
	if u.Path == "" {
		return "", "", eris.New("empty path in ftp url")
	}

	return host, u.Path, nil
}

// ftpConnReader ties the data stream to its control connection so one
// Close releases both.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "quit ftp connection")
	}
	return nil
}

// Download retrieves the file behind the FTP URL with an anonymous
// login. The caller must close the returned reader to release the
// connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	host, path, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp retrieve")
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// DownloadToFile retrieves the FTP URL into path. Transient failures
// are retried with backoff; each attempt opens a fresh control
// connection. Returns bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL string, path string) (int64, error) {
	p := f.retry
	p.OnRetry = func(attempt int, err error) {
		zap.L().Warn("ftp download failed, retrying",
			zap.String("url", ftpURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	n, err := resilience.DoVal(ctx, p, func(ctx context.Context) (int64, error) {
		rc, err := f.Download(ctx, ftpURL)
		if err != nil {
			return 0, err
		}
		defer rc.Close() //nolint:errcheck
		return saveTo(path, rc)
	})
	if err != nil {
		return 0, err
	}

	zap.L().Info("downloaded archive",
		zap.String("url", ftpURL),
		zap.String("path", path),
		zap.Int64("bytes", n),
	)
	return n, nil
}
