package vault

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hashicorp/vault/api"

	infraerrors "github.com/panteparak/console-broker/shared/infrastructure/errors"
)

// IsNotFound reports whether err is a store response meaning "no such secret".
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	// The API only reports some misses as a message.
	return strings.Contains(err.Error(), "no secret found")
}

// IsAuthFailure reports whether the store rejected the caller's token.
// Vault answers 403 for both expired tokens and missing grants.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	if infraerrors.IsPermissionDeniedError(err) {
		return true
	}
	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden || apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// classify maps a raw API error onto the broker's error taxonomy. Not-found is
// handled by callers before classification.
func classify(err error, operation, path string) error {
	if err == nil {
		return nil
	}
	var apiErr *api.ResponseError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusForbidden, http.StatusUnauthorized:
			return infraerrors.NewPermissionDeniedError(operation, path, err)
		}
	}
	return infraerrors.NewStoreUnavailableError(operation, path, err)
}
