package resilience

import (
	"errors"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"syscall"
)

// IsTransient reports whether err looks safe to retry: a network
// timeout, a dropped connection, or a transient FTP reply. Permanent
// failures such as bad URLs, missing files, and cancelled contexts
// are excluded.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	// FTP reply codes invert the HTTP convention: 4xx means transient
	// negative completion, 5xx is permanent.
	var ftpErr *textproto.Error
	if errors.As(err, &ftpErr) {
		return ftpErr.Code >= 400 && ftpErr.Code < 500
	}

	// Wrapped transport errors that lose their type on the way up.
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"unexpected eof",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// RetryableStatus reports whether an HTTP status is worth another
// attempt: request timeout, rate limiting, or any server error.
func RetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= 500
}
