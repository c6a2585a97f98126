package diagnostics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christophgil/zipvfs/internal/logging"
	"github.com/christophgil/zipvfs/internal/zipvfs"
)

type fakeEngine struct {
	stats zipvfs.Stats
}

func (f fakeEngine) Snapshot() zipvfs.Stats { return f.stats }

func Test_StatsHandler_ReturnsJSON(t *testing.T) {
	log, rbuf := logging.New(false)

	srv := New(fakeEngine{stats: zipvfs.Stats{
		CacheLen: 3, CacheCap: 1000, CacheHits: 10, CacheMiss: 2,
		ProbeLen: 5, ArchiveHandles: 1, PassthroughHandles: 0,
		Opens: 4, Reads: 8, BytesRead: 2048,
	}}, rbuf, log, "test-version")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()

	srv.router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got statsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "test-version", got.Version)
	assert.Equal(t, 3, got.CacheLen)
	assert.Equal(t, int64(10), got.CacheHits)
}

func Test_LogsHandler_ReturnsReversedPlainText(t *testing.T) {
	log, rbuf := logging.New(false)
	srv := New(fakeEngine{}, rbuf, log, "test-version")

	log.Info("first entry")
	log.Info("second entry")

	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	w := httptest.NewRecorder()

	srv.router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Less(t, indexOf(body, "second entry"), indexOf(body, "first entry"))
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}

	return -1
}

func Test_Router_OnlyGETAllowed(t *testing.T) {
	log, rbuf := logging.New(false)
	srv := New(fakeEngine{}, rbuf, log, "v")

	req := httptest.NewRequest(http.MethodPost, "/stats", nil)
	w := httptest.NewRecorder()

	srv.router().ServeHTTP(w, req)
	assert.NotEqual(t, http.StatusOK, w.Code)
}
