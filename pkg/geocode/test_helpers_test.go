package geocode

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// newTestLimiter returns a limiter that does not throttle.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newRewriteClient returns an HTTP client that redirects any request whose
// URL starts with a mapped prefix to the corresponding test server.
func newRewriteClient(rewrites map[string]string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{base: http.DefaultTransport, rewrites: rewrites},
	}
}

type rewriteTransport struct {
	base     http.RoundTripper
	rewrites map[string]string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	for prefix, testURL := range t.rewrites {
		if strings.HasPrefix(origURL, prefix) {
			newReq := req.Clone(req.Context())
			parsed, err := req.URL.Parse(testURL + origURL[len(prefix):])
			if err != nil {
				return nil, err
			}
			newReq.URL = parsed
			newReq.Host = parsed.Host
			return t.base.RoundTrip(newReq)
		}
	}
	return t.base.RoundTrip(req)
}
