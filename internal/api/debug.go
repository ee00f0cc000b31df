package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/banshee-data/ensnano-geometry/internal/httputil"
	"github.com/banshee-data/ensnano-geometry/internal/plots"
)

// debugLayout renders the 2-D layout of the working design, with the
// strain history of the last relaxation.
func (s *Server) debugLayout(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	d, history := s.design, s.history
	s.mu.RUnlock()

	var buf bytes.Buffer
	if err := plots.WriteLayoutHTML(&buf, d, history); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) debugStrain(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	history := s.history
	s.mu.RUnlock()

	var buf bytes.Buffer
	err := plots.WriteStrainPNG(&buf, history, "Strain", r.URL.Query().Get("scale") != "linear")
	if errors.Is(err, plots.ErrNoData) {
		httputil.WriteJSONError(w, http.StatusNotFound, "no relaxation history")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}
