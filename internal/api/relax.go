package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/banshee-data/ensnano-geometry/internal/config"
	"github.com/banshee-data/ensnano-geometry/internal/httputil"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/relax"
	"github.com/banshee-data/ensnano-geometry/internal/storage/sqlite"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
	"github.com/banshee-data/ensnano-geometry/internal/sweep"
)

// relaxRequest overrides the base tuning field by field.
type relaxRequest struct {
	*config.TuningConfig
	Anchors []strand.Nucl `json:"anchors,omitempty"`
}

type sweepRequest struct {
	relaxRequest
	Sweep sweep.Request `json:"sweep"`
}

// overlay returns a copy of the base tuning with the fields present in raw
// replaced.
func (s *Server) overlay(raw []byte, into any, base **config.TuningConfig) error {
	b, err := json.Marshal(s.tuning)
	if err != nil {
		return err
	}
	cp := config.EmptyTuningConfig()
	if err := json.Unmarshal(b, cp); err != nil {
		return err
	}
	*base = cp
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, into)
}

func (s *Server) readRelaxRequest(w http.ResponseWriter, r *http.Request, req *relaxRequest, into any) (relax.Config, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return relax.Config{}, err
	}
	if err := s.overlay(raw, into, &req.TuningConfig); err != nil {
		return relax.Config{}, err
	}
	if err := req.TuningConfig.Validate(); err != nil {
		return relax.Config{}, err
	}
	cfg, err := relax.ConfigFromTuning(req.TuningConfig)
	if err != nil {
		return relax.Config{}, err
	}
	cfg.Anchors = req.Anchors
	return cfg, nil
}

func (s *Server) startRelax(w http.ResponseWriter, r *http.Request) {
	var req relaxRequest
	cfg, err := s.readRelaxRequest(w, r, &req, &req)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.mu.Lock()
	s.pending = cfg
	// The job outlives the request.
	err = s.runner.StartRelax(context.Background(), s.design, cfg)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, s.runner.State())
}

func (s *Server) startSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	cfg, err := s.readRelaxRequest(w, r, &req.relaxRequest, &req)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := req.Sweep.Validate(cfg); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.mu.RLock()
	err = s.runner.StartSweep(context.Background(), s.design, cfg, req.Sweep)
	s.mu.RUnlock()
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, s.runner.State())
}

func (s *Server) relaxState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.runner.State())
}

func (s *Server) stopRelax(w http.ResponseWriter, r *http.Request) {
	s.runner.Stop()
	httputil.WriteJSON(w, http.StatusAccepted, s.runner.State())
}

// relaxDone applies a successful relaxation to the working design and
// records every relaxation that produced a result.
func (s *Server) relaxDone(o sweep.Outcome) {
	if o.Result == nil {
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveRun(o.Result)
	}
	s.mu.Lock()
	cfg, snapshotID := s.pending, s.snapshotID
	s.history = o.Result.History
	if o.Err == nil {
		s.design = o.Result.Snapshot
	}
	s.mu.Unlock()

	if o.Err != nil && !errors.Is(o.Err, context.Canceled) {
		monitoring.Logf("[api] relaxation left the design unchanged: %v", o.Err)
	}
	if s.store == nil {
		return
	}
	run := sqlite.RunFromResult(snapshotID, cfg, o.Result)
	if err := s.store.RecordRun(&run); err != nil {
		monitoring.Logf("[api] failed to record run: %v", err)
	}
}
