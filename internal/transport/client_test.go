package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"zerocrash/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAppendsParamsAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer x", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), "test-agent")
	b, err := c.Get(context.Background(), srv.URL+"/search", url.Values{"q": {"golang"}}, http.Header{"Authorization": {"Bearer x"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(b))
}

func TestRetriesOnceOnTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(srv.Client(), "")
	c.retryDelay = time.Millisecond
	b, err := c.Get(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(b))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestNoSecondRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.Client(), "")
	c.retryDelay = time.Millisecond
	_, err := c.Get(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnavailable)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, model.ErrRateLimited},
		{http.StatusForbidden, model.ErrUnavailable},
		{http.StatusNotFound, model.ErrUnavailable},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := New(srv.Client(), "").Get(context.Background(), srv.URL, nil, nil)
		srv.Close()
		require.Error(t, err)
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, tt.status, se.Status)
	}
}

func TestDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(srv.Client(), "").Get(ctx, srv.URL, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTimeout)
}

func TestPostFormSetsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	_, err := New(srv.Client(), "").PostForm(context.Background(), srv.URL, url.Values{"grant_type": {"client_credentials"}}, nil)
	require.NoError(t, err)
}
