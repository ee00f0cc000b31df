package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/banshee-data/ensnano-geometry/internal/httputil"
	"github.com/banshee-data/ensnano-geometry/internal/storage/sqlite"
)

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		httputil.ServiceUnavailable(w, "no snapshot store configured")
		return false
	}
	return true
}

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	list, err := s.store.ListSnapshots()
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*sqlite.Snapshot{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

// saveSnapshot stores the working design under the name given in the body.
func (s *Server) saveSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		httputil.BadRequest(w, "invalid body: "+err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		httputil.BadRequest(w, "name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.store.SaveSnapshot(name, s.design)
	if err != nil {
		writeError(w, err)
		return
	}
	s.snapshotID = snap.ID
	httputil.WriteJSON(w, http.StatusCreated, snap)
}

type snapshotView struct {
	*sqlite.Snapshot
	Design json.RawMessage `json:"design"`
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	snap, err := s.store.GetSnapshot(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := snap.Design.Encode(&buf); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snapshotView{Snapshot: snap, Design: buf.Bytes()})
}

// loadSnapshot makes a stored snapshot the working design.
func (s *Server) loadSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	snap, err := s.store.GetSnapshot(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.replaceDesign(snap.Design, snap.ID); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) deleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteSnapshot(id); err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	if s.snapshotID == id {
		s.snapshotID = ""
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	runs, err := s.store.ListRuns(r.URL.Query().Get("snapshot"))
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*sqlite.Run{}
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}
