package myhttp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/MarcGrol/homechef/lib/myerrors"
)

// HostnameWithScheme returns the externally visible base url: the configured one when present.
func HostnameWithScheme(r *http.Request, configuredBaseURL string) string {
	if configuredBaseURL != "" {
		return strings.TrimSuffix(configuredBaseURL, "/")
	}

	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// IsJSONRequest tells api-calls apart from html form posts
func IsJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func DecodeJSON(r *http.Request, dest any) error {
	if !IsJSONRequest(r) {
		return myerrors.NewUnsupportedMediaTypeError(fmt.Errorf("expected content-type application/json, got '%s'", r.Header.Get("Content-Type")))
	}
	err := json.NewDecoder(r.Body).Decode(dest)
	if err != nil {
		return myerrors.NewInvalidInputErrorf("error parsing request body: %s", err)
	}
	return nil
}
