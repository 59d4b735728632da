package refdatasvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-dashboard/core/cascade"
)

func TestClient_Options(t *testing.T) {
	type request struct{ path, parent, auth string }
	reqs := make(chan request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs <- request{
			path:   r.URL.Path,
			parent: r.URL.Query().Get("parent"),
			auth:   r.Header.Get("Authorization"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"3","name":"Maharashtra","attrs":{"country_id":"1"}}]`))
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL + "/", Token: "s3cr3t"})
	options, err := c.Options(context.Background(), "state", "1")
	require.NoError(t, err)

	req := <-reqs
	assert.Equal(t, "/v1/refdata/state", req.path)
	assert.Equal(t, "1", req.parent)
	assert.Equal(t, "Bearer s3cr3t", req.auth)
	assert.Equal(t, []cascade.Option{
		{ID: "3", Name: "Maharashtra", Attrs: map[string]string{"country_id": "1"}},
	}, options)
}

func TestClient_Retries(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		statuses  []int
		wantCalls int32
		wantCode  int
	}{
		{
			name:      "recovers after a server error",
			attempts:  3,
			statuses:  []int{http.StatusBadGateway, http.StatusOK},
			wantCalls: 2,
		},
		{
			name:      "gives up",
			attempts:  2,
			statuses:  []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable},
			wantCalls: 2,
			wantCode:  http.StatusServiceUnavailable,
		},
		{
			name:      "client errors are final",
			attempts:  3,
			statuses:  []int{http.StatusNotFound},
			wantCalls: 1,
			wantCode:  http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				status := tt.statuses[n-1]
				w.WriteHeader(status)
				if status == http.StatusOK {
					_, _ = w.Write([]byte(`[{"id":"1","name":"India"}]`))
				} else {
					_, _ = w.Write([]byte(`{"error":"nope"}`))
				}
			}))
			defer srv.Close()

			c := NewClient(Options{BaseURL: srv.URL, RetryAttempts: tt.attempts, RetryBackoff: time.Millisecond})
			options, err := c.Options(context.Background(), "country", "")

			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			if tt.wantCode == 0 {
				require.NoError(t, err)
				assert.Len(t, options, 1)
				return
			}
			serr, ok := errors.Cause(err).(*StatusError)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantCode, serr.StatusCode)
			assert.Equal(t, "country", serr.Level)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 10 * time.Millisecond})
	_, err := c.Options(context.Background(), "country", "")
	assert.Error(t, err)
}

func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL}).Options(context.Background(), "country", "")
	assert.Error(t, err)
}

func TestClient_AsSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/refdata/country":
			_, _ = w.Write([]byte(`[{"id":"1","name":"India"}]`))
		case "/v1/refdata/state":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	_, ok := c.Fetcher("Bad Level")
	assert.False(t, ok)

	g, err := cascade.Chain(c, "country", "state")
	require.NoError(t, err)
	e := cascade.NewEngine(g, cascade.EngineOptions{EagerRoot: true})
	defer e.Close()
	e.Wait()

	require.NoError(t, e.Select("country", "1"))
	e.Wait()

	// remote failures stay local to the level
	state, _ := e.State("state")
	assert.True(t, state.Error)
	country, _ := e.State("country")
	assert.Equal(t, "1", country.Value)
}
