package design

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/ensnano-geometry/internal/bezier"
	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/fsutil"
	"github.com/banshee-data/ensnano-geometry/internal/grid"
	"github.com/banshee-data/ensnano-geometry/internal/helix"
	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
	"github.com/banshee-data/ensnano-geometry/internal/version"
)

// maxFileSize bounds design files read from disk.
const maxFileSize = 64 << 20

type fileJSON struct {
	Version    string                 `json:"ensnano_version"`
	Helices    map[int]*helix.Helix   `json:"helices"`
	Strands    map[int]*strand.Strand `json:"strands"`
	Parameters dna.Parameters         `json:"dna_parameters"`
	Grids      map[int]*grid.Grid     `json:"grids"`
	Planes     map[int]bezier.Plane   `json:"bezier_planes,omitempty"`
	Paths      map[int]*bezier.Path   `json:"bezier_paths,omitempty"`
}

type rawFileJSON struct {
	Version    string          `json:"ensnano_version"`
	Helices    json.RawMessage `json:"helices"`
	Strands    json.RawMessage `json:"strands"`
	Parameters json.RawMessage `json:"dna_parameters"`
	Grids      json.RawMessage `json:"grids"`
	Planes     json.RawMessage `json:"bezier_planes"`
	Paths      json.RawMessage `json:"bezier_paths"`
}

// parametersJSON tells absent fields from zeros.
type parametersJSON struct {
	ZStep         *float64 `json:"z_step"`
	HelixRadius   *float64 `json:"helix_radius"`
	BasesPerTurn  *float64 `json:"bases_per_turn"`
	GrooveAngle   *float64 `json:"groove_angle"`
	InterHelixGap *float64 `json:"inter_helix_gap"`
	Inclination   *float64 `json:"inclination"`
}

// decodeParameters fills absent fields from the default set, except the
// inclination, which files written before it existed never applied.
func decodeParameters(raw json.RawMessage) (dna.Parameters, error) {
	p := dna.Default()
	if isNull(raw) {
		return p, nil
	}
	var v parametersJSON
	if err := json.Unmarshal(raw, &v); err != nil {
		return dna.Parameters{}, fmt.Errorf("dna_parameters: %w", err)
	}
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.ZStep, v.ZStep)
	set(&p.HelixRadius, v.HelixRadius)
	set(&p.BasesPerTurn, v.BasesPerTurn)
	set(&p.GrooveAngle, v.GrooveAngle)
	set(&p.InterHelixGap, v.InterHelixGap)
	p.Inclination = 0
	set(&p.Inclination, v.Inclination)
	return p, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// decodeCollection reads an id-keyed object or, as older files do, a list
// whose indices are the ids.
func decodeCollection[T any](raw json.RawMessage, name string) (map[int]T, error) {
	out := make(map[int]T)
	if isNull(raw) {
		return out, nil
	}
	if bytes.TrimSpace(raw)[0] == '[' {
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for i, v := range list {
			out[i] = v
		}
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Decode reads a persisted design. Curves are fitted and the 2-D isometries
// recomputed from the 3-D poses. Strands are not validated; call Validate.
func Decode(r io.Reader) (*Design, error) {
	var raw rawFileJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode design: %w", err)
	}
	p, err := decodeParameters(raw.Parameters)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("dna_parameters: %w", err)
	}

	d := New(p)
	d.Version = raw.Version
	if d.Version != version.FormatVersion {
		monitoring.Logf("[design] file written by version %q", raw.Version)
	}
	if d.Helices, err = decodeCollection[*helix.Helix](raw.Helices, "helices"); err != nil {
		return nil, err
	}
	if d.Strands, err = decodeCollection[*strand.Strand](raw.Strands, "strands"); err != nil {
		return nil, err
	}
	if d.Grids, err = decodeCollection[*grid.Grid](raw.Grids, "grids"); err != nil {
		return nil, err
	}
	if d.Planes, err = decodeCollection[bezier.Plane](raw.Planes, "bezier_planes"); err != nil {
		return nil, err
	}
	if d.Paths, err = decodeCollection[*bezier.Path](raw.Paths, "bezier_paths"); err != nil {
		return nil, err
	}
	for id, h := range d.Helices {
		if h == nil {
			return nil, fmt.Errorf("helix %d: null", id)
		}
	}
	for id, g := range d.Grids {
		if g == nil {
			return nil, fmt.Errorf("grid %d: null", id)
		}
		g.Orientation = g.Orientation.Normalised()
	}
	for id, s := range d.Strands {
		if s == nil {
			return nil, fmt.Errorf("strand %d: null", id)
		}
	}
	for id, pl := range d.Planes {
		pl.Orientation = pl.Orientation.Normalised()
		d.Planes[id] = pl
	}

	d.recoverFreeOffsets()
	d.refitAll()
	for _, h := range d.Helices {
		h.SyncIsometry(p)
	}
	monitoring.Logf("[debug] [design] decoded %d helices, %d strands, %d grids",
		len(d.Helices), len(d.Strands), len(d.Grids))
	return d, nil
}

// recoverFreeOffsets fills the missing plane offsets of Free grid helices
// from where their axes cross the grid.
func (d *Design) recoverFreeOffsets() {
	for _, h := range d.Helices {
		gp := h.GridPosition
		if gp == nil || gp.Offset != (r2.Vec{}) {
			continue
		}
		g, ok := d.Grids[gp.Grid]
		if !ok || g.Type != grid.Free {
			continue
		}
		if off, ok := g.LineIntersection(h.Position, h.AxisDirection()); ok {
			gp.Offset = off
		}
	}
}

// Encode writes d as indented JSON stamped with the file format version.
func (d *Design) Encode(w io.Writer) error {
	f := fileJSON{
		Version:    version.FormatVersion,
		Helices:    d.Helices,
		Strands:    d.Strands,
		Parameters: d.Parameters,
		Grids:      d.Grids,
		Planes:     d.Planes,
		Paths:      d.Paths,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode design: %w", err)
	}
	return nil
}

// Load reads a design file.
func Load(fs fsutil.FileSystem, path string) (*Design, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load design: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("load design: %s is %d bytes, limit %d", path, info.Size(), maxFileSize)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load design: %w", err)
	}
	d, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return d, nil
}

// Save writes d to path, creating the parent directory.
func (d *Design) Save(fs fsutil.FileSystem, path string) error {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save design: %w", err)
	}
	if err := fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save design: %w", err)
	}
	return nil
}
