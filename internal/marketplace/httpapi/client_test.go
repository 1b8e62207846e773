package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polgen/internal/config"
	"polgen/internal/domain"
	"polgen/internal/marketplace/httpapi"
)

var isbn = domain.Identifier{Type: domain.IdentifierTypeISBN, Value: "9780306406157"}

func newClient(url string) *httpapi.Client {
	return httpapi.NewClient(&config.MarketplaceConfig{BaseURL: url, APIKey: "mk-test", TimeoutSecs: 5})
}

func TestClient_Enrich(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/9780306406157", r.URL.Path)
		assert.Equal(t, "mk-test", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"price": 24.5, "currency": "usd", "cover_url": "https://img.example/c.jpg", "available": true}`))
	}))
	defer srv.Close()

	rec, err := newClient(srv.URL).Enrich(context.Background(), isbn)

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "24.50", rec.Price.Value)
	assert.Equal(t, "USD", rec.Currency.Value)
	assert.Equal(t, "https://img.example/c.jpg", rec.CoverURL.Value)
	require.NotNil(t, rec.Available)
	assert.True(t, *rec.Available)
}

func TestClient_MissingFieldsAreUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"cover_url": "https://img.example/c.jpg"}`))
	}))
	defer srv.Close()

	rec, err := newClient(srv.URL).Enrich(context.Background(), isbn)

	require.NoError(t, err)
	assert.False(t, rec.Price.Known)
	assert.False(t, rec.Currency.Known)
	assert.Nil(t, rec.Available)
}

func TestClient_NoDataCases(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
		{"throttled", http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			rec, err := newClient(srv.URL).Enrich(context.Background(), isbn)

			assert.NoError(t, err)
			assert.Nil(t, rec)
		})
	}
}

func TestClient_UnreachableIsNoData(t *testing.T) {
	rec, err := newClient("http://127.0.0.1:1").Enrich(context.Background(), isbn)
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestClient_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Enrich(context.Background(), isbn)

	assert.True(t, domain.IsAuth(err))
}

func TestClient_NonISBNHasNoData(t *testing.T) {
	rec, err := newClient("http://127.0.0.1:1").Enrich(context.Background(), domain.Identifier{Type: domain.IdentifierTypeOCLC, Value: "42"})
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestClient_EmptyIdentifier(t *testing.T) {
	_, err := newClient("http://127.0.0.1:1").Enrich(context.Background(), domain.Identifier{})
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)
}
