package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
	"github.com/banshee-data/ensnano-geometry/internal/helix"
	"github.com/banshee-data/ensnano-geometry/internal/httputil"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
	"github.com/banshee-data/ensnano-geometry/internal/sweep"
)

type helixView struct {
	ID           int                 `json:"id"`
	Position     r3.Vec              `json:"position"`
	Orientation  geom.Rotor          `json:"orientation"`
	GridPosition *helix.GridPosition `json:"grid_position,omitempty"`
	Isometry2D   geom.Isometry2      `json:"isometry2d"`
	Range        *helix.Range        `json:"range,omitempty"`
	Curved       bool                `json:"curved"`
	Locked       bool                `json:"locked"`
}

func (s *Server) listHelices(w http.ResponseWriter, r *http.Request) {
	d := s.Design()
	out := make([]helixView, 0, len(d.Helices))
	for _, id := range d.HelixIDs() {
		h := d.Helices[id]
		v := helixView{
			ID:           id,
			Position:     h.Position,
			Orientation:  h.Orientation,
			GridPosition: h.GridPosition,
			Isometry2D:   h.Isometry2D,
			Curved:       h.Curved(),
			Locked:       h.Locked,
		}
		if rg, ok := h.DeclaredRange(d.Parameters); ok {
			v.Range = &rg
		}
		out = append(out, v)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// frameQuery reads the helix id and the index and forward query values.
// forward defaults to true.
func frameQuery(r *http.Request) (id, index int, forward bool, err error) {
	if id, err = intParam(r, "id"); err != nil {
		return
	}
	if index, err = strconv.Atoi(r.URL.Query().Get("index")); err != nil {
		return
	}
	forward = true
	if f := r.URL.Query().Get("forward"); f != "" {
		forward, err = strconv.ParseBool(f)
	}
	return
}

func (s *Server) helixFrame(w http.ResponseWriter, r *http.Request) {
	id, index, forward, err := frameQuery(r)
	if err != nil {
		httputil.BadRequest(w, "invalid id, index or forward: "+err.Error())
		return
	}
	f, err := s.Design().ComputeFrame(id, index, forward)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (s *Server) helixFrame2D(w http.ResponseWriter, r *http.Request) {
	id, index, _, err := frameQuery(r)
	if err != nil {
		httputil.BadRequest(w, "invalid id or index: "+err.Error())
		return
	}
	f, err := s.Design().ComputeFrame2D(id, index)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

type validateResponse struct {
	Valid       bool   `json:"valid"`
	TotalLength int    `json:"total_length"`
	Error       string `json:"error,omitempty"`
	Code        string `json:"code,omitempty"`
}

// validateStrand checks a strand against the working design. A strand that
// fails validation is still a successful request.
func (s *Server) validateStrand(w http.ResponseWriter, r *http.Request) {
	var st strand.Strand
	if err := decodeBody(w, r, &st); err != nil {
		httputil.BadRequest(w, "invalid strand: "+err.Error())
		return
	}
	resp := validateResponse{Valid: true, TotalLength: st.TotalLength()}
	if err := s.Design().ValidateStrand(&st); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
		resp.Code = string(geomerr.GetCode(err))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) getDesign(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.Design().Encode(&buf); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

// putDesign replaces the working design. It is refused while a job runs so
// a finishing relaxation cannot overwrite it.
func (s *Server) putDesign(w http.ResponseWriter, r *http.Request) {
	d, err := design.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := d.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.replaceDesign(d, ""); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"helices": len(d.Helices), "strands": len(d.Strands)})
}

func (s *Server) replaceDesign(d *design.Design, snapshotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner.State().Status == sweep.StatusRunning {
		return fmt.Errorf("design is being relaxed: %w", sweep.ErrBusy)
	}
	s.design = d
	s.snapshotID = snapshotID
	s.history = nil
	return nil
}
