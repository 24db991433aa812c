package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/sells-group/census-geocode/pkg/geocode"
)

// IsTransient reports whether err looks like a passing network or server
// condition rather than bad input. A ParseError is never transient; a
// TransportError is transient when it carries a retryable status or no status
// at all (the request never got a response).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pe *geocode.ParseError
	if errors.As(err, &pe) {
		return false
	}

	var te *geocode.TransportError
	if errors.As(err, &te) && te.StatusCode != 0 {
		return IsTransientHTTPStatus(te.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// eris and net/http flatten some causes into the message.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"client.timeout exceeded",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether statusCode signals a temporary
// server-side problem.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
