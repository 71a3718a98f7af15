package myhttp

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/homechef/lib/myerrors"
)

func TestHostnameWithScheme(t *testing.T) {
	request, _ := http.NewRequest(http.MethodGet, "/checkout", nil)
	request.Host = "localhost:8888"

	t.Run("derived from request", func(t *testing.T) {
		assert.Equal(t, "http://localhost:8888", HostnameWithScheme(request, ""))
	})

	t.Run("configured base url wins", func(t *testing.T) {
		assert.Equal(t, "https://homechef.example.com", HostnameWithScheme(request, "https://homechef.example.com/"))
	})
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		DishID string `json:"dishId"`
	}

	t.Run("valid json", func(t *testing.T) {
		request, _ := http.NewRequest(http.MethodPost, "/", strings.NewReader(`{"dishId":"123"}`))
		request.Header.Set("Content-Type", "application/json; charset=utf-8")
		dest := body{}
		err := DecodeJSON(request, &dest)
		assert.NoError(t, err)
		assert.Equal(t, "123", dest.DishID)
	})

	t.Run("wrong content type", func(t *testing.T) {
		request, _ := http.NewRequest(http.MethodPost, "/", strings.NewReader(`dishId=123`))
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		err := DecodeJSON(request, &body{})
		assert.Equal(t, http.StatusUnsupportedMediaType, myerrors.GetHTTPStatus(err))
	})

	t.Run("malformed json", func(t *testing.T) {
		request, _ := http.NewRequest(http.MethodPost, "/", strings.NewReader(`{"dishId":`))
		request.Header.Set("Content-Type", "application/json")
		err := DecodeJSON(request, &body{})
		assert.Equal(t, http.StatusBadRequest, myerrors.GetHTTPStatus(err))
	})
}
