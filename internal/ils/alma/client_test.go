package alma_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polgen/internal/config"
	"polgen/internal/domain"
	"polgen/internal/ils/alma"
)

func newClient(url string) *alma.Client {
	return alma.NewClient(&config.ILSConfig{
		BaseURL:             url,
		APIKey:              "secret-key",
		TimeoutSecs:         5,
		ExpectedReceiptDays: 30,
		DefaultCurrency:     "USD",
	})
}

func sampleDoc() *domain.POLDocument {
	return &domain.POLDocument{
		MaterialType: "book",
		Identifier:   domain.Identifier{Type: domain.IdentifierTypeISBN, Value: "9780306406157"},
		Fields: map[string]string{
			domain.FieldTitle:         "Sample Book",
			domain.FieldISBN:          "9780306406157",
			domain.FieldPrice:         "29.99",
			domain.FieldCurrency:      "USD",
			domain.FieldFund:          "F100",
			domain.FieldVendor:        "AMAZON",
			domain.FieldOrderType:     "PRINTED_BOOK_OT",
			domain.FieldMaterialType:  "BOOK",
			domain.FieldOwningLibrary: "MAIN",
			domain.FieldQuantity:      "1",
		},
	}
}

const rejectionBody = `{
	"errorsExist": true,
	"errorList": {"error": [{"errorCode": "401871", "errorMessage": "Fund code F100 is not active", "trackingId": "E01-1"}]}
}`

func TestClient_SubmitSuccess(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/almaws/v1/acq/po-lines", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("requires_manual_review"))
		assert.Equal(t, "apikey secret-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"number": "POL-12345"}`))
	}))
	defer srv.Close()

	number, err := newClient(srv.URL).Submit(context.Background(), sampleDoc())

	require.NoError(t, err)
	assert.Equal(t, "POL-12345", number)
	assert.Equal(t, map[string]interface{}{"value": "AMAZON"}, got["vendor"])
	meta := got["resource_metadata"].(map[string]interface{})
	assert.Equal(t, "Sample Book", meta["title"])
}

func TestClient_SubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(rejectionBody))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Submit(context.Background(), sampleDoc())

	var rej *domain.RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusBadRequest, rej.StatusCode)
	assert.Equal(t, "401871", rej.Code)
	assert.Equal(t, "Fund code F100 is not active", rej.Reason)
	assert.False(t, domain.IsTransient(err))
	assert.False(t, domain.IsAuth(err))
}

func TestClient_SubmitAuthFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"401", http.StatusUnauthorized, ""},
		{"403", http.StatusForbidden, ""},
		{"bad key on 400", http.StatusBadRequest, `{"errorsExist":true,"errorList":{"error":[{"errorCode":"INVALID_API_KEY","errorMessage":"Invalid API Key"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient(srv.URL).Submit(context.Background(), sampleDoc())
			assert.True(t, domain.IsAuth(err), "got %v", err)
		})
	}
}

func TestClient_SubmitTransient(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		wantHint   time.Duration
	}{
		{"throttled with hint", http.StatusTooManyRequests, "1", time.Second},
		{"server error", http.StatusServiceUnavailable, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newClient(srv.URL).Submit(context.Background(), sampleDoc())

			var te *domain.TransientError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.status, te.StatusCode)
			assert.Equal(t, tt.wantHint, te.RetryAfter)
		})
	}
}

func TestClient_SubmitNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newClient(url).Submit(context.Background(), sampleDoc())
	assert.True(t, domain.IsTransient(err))
}

func TestClient_SubmitMissingNumberIsNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Submit(context.Background(), sampleDoc())

	var rej *domain.RejectedError
	require.True(t, errors.As(err, &rej))
	assert.False(t, domain.IsTransient(err))
}

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/almaws/v1/acq/vendors", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		if r.Header.Get("Authorization") != "apikey secret-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"vendor": [], "total_record_count": 0}`))
	}))
	defer srv.Close()

	require.NoError(t, newClient(srv.URL).Ping(context.Background()))

	bad := alma.NewClient(&config.ILSConfig{BaseURL: srv.URL, APIKey: "wrong"})
	assert.True(t, domain.IsAuth(bad.Ping(context.Background())))
}

func TestClient_FindExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/almaws/v1/acq/po-lines", r.URL.Path)
		assert.Equal(t, "isbn~9780306406157", r.URL.Query().Get("q"))
		assert.Equal(t, "ACTIVE", r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`{
			"po_line": [
				{"number": "POL-1", "vendor": {"value": "OTHER"}},
				{"number": "POL-2", "vendor": {"value": "amazon"}}
			],
			"total_record_count": 2
		}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	id := domain.Identifier{Type: domain.IdentifierTypeISBN, Value: "9780306406157"}

	number, found, err := c.FindExisting(context.Background(), "AMAZON", id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "POL-2", number)

	_, found, err = c.FindExisting(context.Background(), "BAKER", id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_FindExistingSkipsOCLC(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	_, found, err := newClient(srv.URL).FindExisting(context.Background(), "AMAZON",
		domain.Identifier{Type: domain.IdentifierTypeOCLC, Value: "12345"})

	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, called)
}

func TestClient_SubmitChecksInterestedUser(t *testing.T) {
	userLookups, posts := 0, 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/almaws/v1/users/jdoe":
			userLookups++
			_, _ = w.Write([]byte(`{"primary_id": "jdoe"}`))
		case "/almaws/v1/users/ghost":
			userLookups++
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errorsExist": true, "errorList": {"error": [{"errorCode": "401861", "errorMessage": "User with identifier ghost was not found."}]}}`))
		case "/almaws/v1/acq/po-lines":
			posts++
			_, _ = w.Write([]byte(`{"number": "POL-1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()
	client := newClient(srv.URL)

	doc := sampleDoc()
	doc.Fields[domain.FieldInterestedUser] = "jdoe"
	for i := 0; i < 2; i++ {
		number, err := client.Submit(context.Background(), doc)
		require.NoError(t, err)
		assert.Equal(t, "POL-1", number)
	}
	assert.Equal(t, 1, userLookups, "confirmed users are cached")

	doc.Fields[domain.FieldInterestedUser] = "ghost"
	_, err := client.Submit(context.Background(), doc)

	var rej *domain.RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "401861", rej.Code)
	assert.Contains(t, rej.Error(), `interested user "ghost"`)
	assert.Equal(t, 2, posts)
}
