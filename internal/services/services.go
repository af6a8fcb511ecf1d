package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// APIError is a non-2xx response from the Spotify Web API.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	if msg := gjson.GetBytes(e.Body, "error.message").String(); msg != "" {
		return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 from the Web API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return retrieveErr.Response.StatusCode
	}
	return 0
}

// DescribeTokenError returns the provider's error and error_description from a token endpoint failure.
//
// ok is false when err did not come from the token endpoint.
func DescribeTokenError(err error) (code, description string, ok bool) {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return "", "", false
	}

	body := gjson.ParseBytes(retrieveErr.Body)
	code = body.Get("error").String()
	description = body.Get("error_description").String()
	if code == "" {
		code = retrieveErr.ErrorCode
	}
	if description == "" {
		description = retrieveErr.ErrorDescription
	}
	return code, description, true
}
