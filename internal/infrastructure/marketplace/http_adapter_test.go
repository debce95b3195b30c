package marketplace_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmacia-stock/internal/infrastructure/marketplace"
)

func TestHTTPAdapter_Success(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/inventory/receiving-deltas", r.URL.Path)
		assert.Equal(t, "Bearer clave", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	a := marketplace.NewHTTPAdapter(srv.URL+"/", "clave", time.Second)
	res, err := a.PushReceivingDelta(context.Background(), "SKU-1", 20, 67)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "SKU-1", got["sku"])
	assert.EqualValues(t, 20, got["delta"])
	assert.EqualValues(t, 67, got["new_quantity"])
}

func TestHTTPAdapter_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"success":false,"error":"SKU desconocido"}`))
	}))
	defer srv.Close()

	res, err := marketplace.NewHTTPAdapter(srv.URL, "", time.Second).PushReceivingDelta(context.Background(), "X", 1, 1)
	require.NoError(t, err, "un 4xx es rechazo, no error reintentable")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "SKU desconocido")
}

func TestHTTPAdapter_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := marketplace.NewHTTPAdapter(srv.URL, "", time.Second).PushReceivingDelta(context.Background(), "X", 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPAdapter_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := marketplace.NewHTTPAdapter(srv.URL, "", 5*time.Second).PushReceivingDelta(ctx, "X", 1, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
