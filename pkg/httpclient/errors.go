package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/ammadakrram/storefront-search/pkg/errors"
)

// downstreamError mirrors the error half of the httputil envelope.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes a non-2xx response body and
// translates it into an error. Structured envelopes keep their code.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", service, resp.StatusCode, err)
	}

	code, message := "", string(body)
	var de downstreamError
	if json.Unmarshal(body, &de) == nil && de.Error != nil {
		code, message = de.Error.Code, de.Error.Message
	}
	msg := fmt.Sprintf("%s: %s", service, message)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &apperrors.AppError{Code: "NOT_FOUND", Message: msg, Status: http.StatusNotFound, Err: apperrors.ErrNotFound}
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.InvalidInput(msg)
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case resp.StatusCode == http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(service, fmt.Errorf("%s", message))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s server error (%d %s): %s", service, resp.StatusCode, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: msg, Status: resp.StatusCode}
	}
}
