// Package diagnostics implements the read-only HTTP diagnostics server
// described in SPEC_FULL.md §6: cache/handle-table/probe counters and the
// log ring buffer, with no endpoint accepting writes or otherwise mutating
// filesystem state (preserving spec.md's I5).
package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/christophgil/zipvfs/internal/logging"
	"github.com/christophgil/zipvfs/internal/zipvfs"
)

// engine is the subset of [zipvfs.FS] the diagnostics server depends on.
type engine interface {
	Snapshot() zipvfs.Stats
}

// Server serves a read-only snapshot of the running filesystem's state.
type Server struct {
	version   string
	fsys      engine
	rbuf      *logging.RingBuffer
	log       *logrus.Logger
	mountTime time.Time
}

// New returns a [Server] for fsys, reporting version and reading from rbuf.
func New(fsys engine, rbuf *logging.RingBuffer, log *logrus.Logger, version string) *Server {
	return &Server{version: version, fsys: fsys, rbuf: rbuf, log: log, mountTime: time.Now()}
}

// Serve starts listening on addr in the background and returns the
// [http.Server] so the caller can Close it during shutdown.
func (s *Server) Serve(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: s.router(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Errorf("diagnostics server panic: %v\n%s", r, debug.Stack())
			}
		}()

		s.log.Infof("diagnostics server listening on %s", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("diagnostics server error: %v", err)
		}
	}()

	return srv
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	r.HandleFunc("/logs", s.logsHandler).Methods(http.MethodGet)

	return r
}

type statsResponse struct {
	Version            string `json:"version"`
	Uptime             string `json:"uptime"`
	AllocBytes         string `json:"allocBytes"`
	CacheLen           int    `json:"cacheArchives"`
	CacheCap           int    `json:"cacheCapacity"`
	CacheHits          int64  `json:"cacheHits"`
	CacheMisses        int64  `json:"cacheMisses"`
	ProbeMemoEntries   int    `json:"probeMemoEntries"`
	ArchiveHandles     int    `json:"archiveHandles"`
	PassthroughHandles int    `json:"passthroughHandles"`
	Opens              int64  `json:"opens"`
	Reads              int64  `json:"reads"`
	BytesRead          string `json:"bytesRead"`
}

func (s *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	snap := s.fsys.Snapshot()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := statsResponse{
		Version:            s.version,
		Uptime:             humanize.Time(s.mountTime),
		AllocBytes:         humanize.IBytes(mem.Alloc),
		CacheLen:           snap.CacheLen,
		CacheCap:           snap.CacheCap,
		CacheHits:          snap.CacheHits,
		CacheMisses:        snap.CacheMiss,
		ProbeMemoEntries:   snap.ProbeLen,
		ArchiveHandles:     snap.ArchiveHandles,
		PassthroughHandles: snap.PassthroughHandles,
		Opens:              snap.Opens,
		Reads:              snap.Reads,
		BytesRead:          humanize.IBytes(uint64(snap.BytesRead)), //nolint:gosec
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) logsHandler(w http.ResponseWriter, _ *http.Request) {
	lines := s.rbuf.Lines()
	slices.Reverse(lines)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
