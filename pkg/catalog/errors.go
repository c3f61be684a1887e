package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Errors returned by Client implementations. Callers match them with errors.Is.
var (
	ErrCatalogUnreachable = errors.New("catalog unreachable")
	ErrAuthExpired        = errors.New("catalog session expired")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrCopyFailed         = errors.New("copy failed")
)

// classify maps a govmomi REST error onto the sentinel errors above.
// The vAPI client reports HTTP failures as "<METHOD> <URL>: <status>".
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrCatalogUnreachable, ErrAuthExpired, ErrNotFound, ErrConflict, ErrCopyFailed} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	msg := err.Error()
	switch {
	case hasStatus(msg, http.StatusUnauthorized), hasStatus(msg, http.StatusForbidden):
		return fmt.Errorf("%w: %v", ErrAuthExpired, err)
	case hasStatus(msg, http.StatusNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case hasStatus(msg, http.StatusConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case hasStatus(msg, http.StatusBadGateway),
		hasStatus(msg, http.StatusServiceUnavailable),
		hasStatus(msg, http.StatusGatewayTimeout):
		return fmt.Errorf("%w: %v", ErrCatalogUnreachable, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrCatalogUnreachable, err)
	}
	return err
}

func hasStatus(msg string, code int) bool {
	return strings.Contains(msg, fmt.Sprintf("%d %s", code, http.StatusText(code)))
}
