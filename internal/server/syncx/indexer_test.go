package syncx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastIndexer(url string) *HTTPIndexer {
	x := NewHTTPIndexer(url, nil)
	x.base = time.Millisecond
	return x
}

func TestHTTPIndexer_PostsRecord(t *testing.T) {
	var got models.Record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := fastIndexer(srv.URL).Index(context.Background(), &models.Record{CodeID: 9, SoftwareTitle: "Solver"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.CodeID)
	assert.Equal(t, "Solver", got.SoftwareTitle)
}

func TestHTTPIndexer_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	require.NoError(t, fastIndexer(srv.URL).Index(context.Background(), &models.Record{CodeID: 1}))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPIndexer_ClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := fastIndexer(srv.URL).Index(context.Background(), &models.Record{CodeID: 1})
	assert.ErrorContains(t, err, "400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPIndexer_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := fastIndexer(srv.URL).Index(context.Background(), &models.Record{CodeID: 1})
	assert.ErrorContains(t, err, "500")
	assert.Equal(t, int32(4), calls.Load())
}
