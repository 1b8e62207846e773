package session_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"polgen/internal/domain"
	"polgen/internal/session"
)

func TestTokenCache_ConcurrentCallersShareOneRefresh(t *testing.T) {
	var fetches int32
	cache := session.NewTokenCache("worldcat", func(context.Context) (*oauth2.Token, error) {
		atomic.AddInt32(&fetches, 1)
		time.Sleep(20 * time.Millisecond)
		return &oauth2.Token{AccessToken: "tok-1", Expiry: time.Now().Add(time.Hour)}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := cache.AccessToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "tok-1", tok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
	assert.Equal(t, 1, cache.Refreshes())
}

func TestTokenCache_RefreshesExpiredToken(t *testing.T) {
	n := 0
	cache := session.NewTokenCache("worldcat", func(context.Context) (*oauth2.Token, error) {
		n++
		// Expiry inside oauth2's early-expiry window makes the token invalid at once.
		return &oauth2.Token{AccessToken: fmt.Sprintf("tok-%d", n), Expiry: time.Now().Add(time.Second)}, nil
	})

	first, err := cache.AccessToken(context.Background())
	require.NoError(t, err)
	second, err := cache.AccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "tok-1", first)
	assert.Equal(t, "tok-2", second)
}

func TestTokenCache_InvalidateOnlyStaleToken(t *testing.T) {
	n := 0
	cache := session.NewTokenCache("worldcat", func(context.Context) (*oauth2.Token, error) {
		n++
		return &oauth2.Token{AccessToken: fmt.Sprintf("tok-%d", n), Expiry: time.Now().Add(time.Hour)}, nil
	})

	tok, err := cache.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)

	cache.Invalidate("tok-0")
	tok, _ = cache.AccessToken(context.Background())
	assert.Equal(t, "tok-1", tok, "unrelated stale token must not evict the current one")

	cache.Invalidate("tok-1")
	tok, _ = cache.AccessToken(context.Background())
	assert.Equal(t, "tok-2", tok)
}

func TestTokenCache_ClientCredentials(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "WorldCatMetadataAPI", r.Form.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tk_abc","token_type":"bearer","expires_in":1199}`))
	}))
	defer srv.Close()

	cfg := &clientcredentials.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     srv.URL,
		Scopes:       []string{"WorldCatMetadataAPI"},
	}
	cache := session.NewClientCredentials("worldcat", cfg, srv.Client())

	tok, err := cache.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tk_abc", tok)

	_, err = cache.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTokenCache_ClassifiesTokenEndpointErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantAuth  bool
		wantTrans bool
	}{
		{"bad credentials", http.StatusUnauthorized, true, false},
		{"invalid client", http.StatusBadRequest, true, false},
		{"server down", http.StatusServiceUnavailable, false, true},
		{"throttled", http.StatusTooManyRequests, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			}))
			defer srv.Close()

			cfg := &clientcredentials.Config{ClientID: "id", ClientSecret: "bad", TokenURL: srv.URL}
			cache := session.NewClientCredentials("worldcat", cfg, srv.Client())

			_, err := cache.AccessToken(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.wantAuth, domain.IsAuth(err))
			assert.Equal(t, tt.wantTrans, domain.IsTransient(err))
		})
	}
}

func TestTokenCache_NetworkErrorIsTransient(t *testing.T) {
	cache := session.NewTokenCache("worldcat", func(context.Context) (*oauth2.Token, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	_, err := cache.AccessToken(context.Background())
	assert.True(t, domain.IsTransient(err))
}
