package ai

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is a non-2xx reply from a provider API.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed: %d %s: %s", e.Provider, e.Code, http.StatusText(e.Code), e.Body)
}

// Temporary reports whether the same request may succeed later.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

func checkStatus(provider string, resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{Provider: provider, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}

// transient reports whether err is worth another attempt. Rejections
// such as bad requests or bad keys are final; transport errors are not.
func transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
