package relax

import (
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ensnano-geometry/internal/design"
	"github.com/banshee-data/ensnano-geometry/internal/geom"
	"github.com/banshee-data/ensnano-geometry/internal/helix"
	"github.com/banshee-data/ensnano-geometry/internal/strand"
)

// curveChunk is the number of nucleotides approximated by one straight
// segment of a curved axis.
const curveChunk = 8

// pose is the rigid motion of a body relative to its starting pose: rotate
// by R around the starting centre, then translate by T.
type pose struct {
	T r3.Vec
	R geom.Rotor
}

var rest = pose{R: geom.Identity()}

// body is a set of helices (and possibly their grid) that move together.
type body struct {
	helices []int
	grid    int // -1 when the body is not a grid
	fixed   bool
	centre  r3.Vec
	inertia float64
}

type helixPose struct {
	position    r3.Vec
	orientation geom.Rotor
}

// contact is one strain term acting on two bodies, or on one body when b is
// negative.
type contact struct {
	kind contactKind
	a, b int // body indices
	// steric: helix ids; crossover and anchor: nucleotides.
	ha, hb int
	from   strand.Nucl
	to     strand.Nucl
	target r3.Vec
}

type contactKind int

const (
	stericContact contactKind = iota
	crossoverContact
	anchorContact
)

// push is a force applied at a world point of a body.
type push struct {
	body  int
	point r3.Vec
	force r3.Vec
}

// term is the evaluated contribution of one contact.
type term struct {
	strain float64
	pushes [2]push
	n      int
}

// model is the relaxation problem built from one design clone. It mutates
// only the poses of that clone.
type model struct {
	cfg    Config
	d      *design.Design
	bodies []body
	// bodyOf maps a helix id to its body index.
	bodyOf   map[int]int
	helixIDs []int
	base     map[int]helixPose
	gridBase map[int]helixPose
	// used is the index range of each helix covered by strands.
	used     map[int]helix.Range
	contacts []contact
}

func newModel(d *design.Design, cfg Config) (*model, error) {
	m := &model{
		cfg:      cfg,
		d:        d,
		bodyOf:   make(map[int]int),
		helixIDs: d.HelixIDs(),
		base:     make(map[int]helixPose),
		gridBase: make(map[int]helixPose),
		used:     usedRanges(d),
	}
	for _, id := range m.helixIDs {
		h := d.Helices[id]
		m.base[id] = helixPose{position: h.Position, orientation: h.Orientation}
	}
	for _, id := range d.GridIDs() {
		g := d.Grids[id]
		m.gridBase[id] = helixPose{position: g.Position, orientation: g.Orientation}
	}
	m.buildBodies()
	if err := m.measureBodies(); err != nil {
		return nil, err
	}
	if err := m.buildContacts(); err != nil {
		return nil, err
	}
	return m, nil
}

// usedRanges returns, per helix, the span of indices strands occupy. Helices
// without strands fall back to their declared range.
func usedRanges(d *design.Design) map[int]helix.Range {
	out := make(map[int]helix.Range)
	for _, sid := range d.StrandIDs() {
		for _, dom := range d.Strands[sid].Domains {
			if dom.Kind != strand.HelixDomainKind {
				continue
			}
			r, ok := out[dom.Helix]
			if !ok {
				out[dom.Helix] = helix.Range{Start: dom.Start, End: dom.End}
				continue
			}
			r.Start = min(r.Start, dom.Start)
			r.End = max(r.End, dom.End)
			out[dom.Helix] = r
		}
	}
	for _, id := range d.HelixIDs() {
		if _, ok := out[id]; ok {
			continue
		}
		if r, ok := d.Helices[id].DeclaredRange(d.Parameters); ok && r.Len() > 0 {
			out[id] = r
		}
	}
	return out
}

func (m *model) buildBodies() {
	if m.cfg.Granularity == Grids {
		for _, gid := range m.d.GridIDs() {
			members := m.d.GridHelices(gid)
			if len(members) == 0 {
				continue
			}
			b := body{helices: members, grid: gid}
			for _, hid := range members {
				b.fixed = b.fixed || m.d.Helices[hid].Locked
				m.bodyOf[hid] = len(m.bodies)
			}
			m.bodies = append(m.bodies, b)
		}
	}
	for _, hid := range m.helixIDs {
		if _, ok := m.bodyOf[hid]; ok {
			continue
		}
		m.bodyOf[hid] = len(m.bodies)
		m.bodies = append(m.bodies, body{
			helices: []int{hid},
			grid:    -1,
			fixed:   m.d.Helices[hid].Locked,
		})
	}
}

// measureBodies sets the centre and rotational inertia of every body from
// the axis segments of its helices.
func (m *model) measureBodies() error {
	for i := range m.bodies {
		b := &m.bodies[i]
		var mids []r3.Vec
		var lengths []float64
		for _, hid := range b.helices {
			segs, err := m.segments(hid)
			if err != nil {
				return fmt.Errorf("helix %d: %w", hid, err)
			}
			if len(segs) == 0 {
				mids = append(mids, m.d.Helices[hid].Position)
				lengths = append(lengths, 0)
				continue
			}
			for _, s := range segs {
				mids = append(mids, s.At(0.5))
				lengths = append(lengths, s.Length())
			}
		}
		var c r3.Vec
		for _, p := range mids {
			c = r3.Add(c, p)
		}
		b.centre = r3.Scale(1/float64(len(mids)), c)
		for k, p := range mids {
			d := r3.Sub(p, b.centre)
			b.inertia += lengths[k]*lengths[k]/12 + r3.Dot(d, d)
		}
		b.inertia = max(b.inertia, 1)
	}
	return nil
}

func (m *model) buildContacts() error {
	if m.cfg.VolumeExclusion && m.cfg.StericWeight > 0 {
		for i, ha := range m.helixIDs {
			if _, ok := m.used[ha]; !ok {
				continue
			}
			for _, hb := range m.helixIDs[i+1:] {
				if _, ok := m.used[hb]; !ok {
					continue
				}
				a, b := m.bodyOf[ha], m.bodyOf[hb]
				// Pairs inside one body keep their distance.
				if a == b || (m.bodies[a].fixed && m.bodies[b].fixed) {
					continue
				}
				m.contacts = append(m.contacts, contact{kind: stericContact, a: a, b: b, ha: ha, hb: hb})
			}
		}
	}
	if m.cfg.CrossoverWeight > 0 {
		for _, sid := range m.d.StrandIDs() {
			for _, x := range m.d.Strands[sid].CrossOvers() {
				m.contacts = append(m.contacts, contact{
					kind: crossoverContact,
					a:    m.bodyOf[x.From.Helix],
					b:    m.bodyOf[x.To.Helix],
					from: x.From,
					to:   x.To,
				})
			}
		}
	}
	if m.cfg.AnchorStiffness > 0 {
		for _, n := range m.cfg.Anchors {
			h, err := m.d.Helix(n.Helix)
			if err != nil {
				return fmt.Errorf("anchor %v: %w", n, err)
			}
			target, err := h.NucleotidePosition(m.d.Parameters, n.Position, n.Forward)
			if err != nil {
				return fmt.Errorf("anchor %v: %w", n, err)
			}
			m.contacts = append(m.contacts, contact{
				kind:   anchorContact,
				a:      m.bodyOf[n.Helix],
				b:      -1,
				from:   n,
				target: target,
			})
		}
	}
	return nil
}

// segments approximates the used part of a helix axis by straight segments.
func (m *model) segments(hid int) ([]geom.Segment, error) {
	r, ok := m.used[hid]
	if !ok {
		return nil, nil
	}
	h := m.d.Helices[hid]
	p := m.d.Parameters
	if !h.Curved() {
		s, err := h.AxisSegment(p, r)
		if err != nil {
			return nil, err
		}
		return []geom.Segment{s}, nil
	}
	var out []geom.Segment
	for start := r.Start; start < r.End-1; start += curveChunk {
		end := min(start+curveChunk+1, r.End)
		s, err := h.AxisSegment(p, helix.Range{Start: start, End: end})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		s, err := h.AxisSegment(p, r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// apply moves every helix and grid of the design to the given body poses.
func (m *model) apply(poses []pose) {
	for i, b := range m.bodies {
		ps := poses[i]
		move := func(base helixPose) (r3.Vec, geom.Rotor) {
			rel := ps.R.Rotate(r3.Sub(base.position, b.centre))
			return r3.Add(r3.Add(b.centre, rel), ps.T), ps.R.Mul(base.orientation).Normalised()
		}
		for _, hid := range b.helices {
			h := m.d.Helices[hid]
			h.Position, h.Orientation = move(m.base[hid])
		}
		if b.grid >= 0 {
			g := m.d.Grids[b.grid]
			g.Position, g.Orientation = move(m.gridBase[b.grid])
		}
	}
}

// evaluate returns the total strain of the current poses and the force and
// torque on every body. Terms are computed in parallel and summed in
// contact order, so the result does not depend on scheduling.
func (m *model) evaluate(poses []pose) (float64, []r3.Vec, []r3.Vec, error) {
	m.apply(poses)

	segs := make(map[int][]geom.Segment, len(m.used))
	for _, hid := range m.helixIDs {
		s, err := m.segments(hid)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("helix %d: %w", hid, err)
		}
		segs[hid] = s
	}

	terms := make([]term, len(m.contacts))
	var g errgroup.Group
	g.SetLimit(m.cfg.workers())
	chunk := max(1, (len(m.contacts)+m.cfg.workers()-1)/m.cfg.workers())
	for lo := 0; lo < len(m.contacts); lo += chunk {
		hi := min(lo+chunk, len(m.contacts))
		g.Go(func() error {
			for k := lo; k < hi; k++ {
				t, err := m.term(m.contacts[k], segs)
				if err != nil {
					return err
				}
				terms[k] = t
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, nil, err
	}

	forces := make([]r3.Vec, len(m.bodies))
	torques := make([]r3.Vec, len(m.bodies))
	var strain float64
	for _, t := range terms {
		strain += t.strain
		for _, p := range t.pushes[:t.n] {
			c := r3.Add(m.bodies[p.body].centre, poses[p.body].T)
			forces[p.body] = r3.Add(forces[p.body], p.force)
			torques[p.body] = r3.Add(torques[p.body], r3.Cross(r3.Sub(p.point, c), p.force))
		}
	}
	return strain, forces, torques, nil
}

func (m *model) term(c contact, segs map[int][]geom.Segment) (term, error) {
	p := m.d.Parameters
	switch c.kind {
	case stericContact:
		var t term
		gap := p.InterCentreGap()
		// The deepest overlap between the two axes counts.
		best := math.Inf(1)
		var pa, pb r3.Vec
		for _, sa := range segs[c.ha] {
			for _, sb := range segs[c.hb] {
				dist, s, u := geom.SegmentDistance(sa, sb)
				if dist < best {
					best, pa, pb = dist, sa.At(s), sb.At(u)
				}
			}
		}
		overlap := gap - best
		if overlap <= 0 || math.IsInf(best, 1) {
			return t, nil
		}
		t.strain = m.cfg.StericWeight * overlap * overlap
		dir := r3.Sub(pa, pb)
		if r3.Norm(dir) < 1e-12 {
			dir = r3.Sub(m.bodies[c.a].centre, m.bodies[c.b].centre)
			if r3.Norm(dir) < 1e-12 {
				dir = r3.Vec{X: 1}
			}
		}
		f := r3.Scale(2*m.cfg.StericWeight*overlap, r3.Unit(dir))
		t.pushes[0] = push{body: c.a, point: pa, force: f}
		t.pushes[1] = push{body: c.b, point: pb, force: r3.Scale(-1, f)}
		t.n = 2
		return t, nil

	case crossoverContact:
		var t term
		pa, err := m.nucleotide(c.from)
		if err != nil {
			return t, err
		}
		pb, err := m.nucleotide(c.to)
		if err != nil {
			return t, err
		}
		d := r3.Sub(pa, pb)
		length := r3.Norm(d)
		excess := length - m.cfg.CrossoverRestLength
		if excess <= 0 {
			return t, nil
		}
		t.strain = m.cfg.CrossoverWeight * excess * excess
		f := r3.Scale(-2*m.cfg.CrossoverWeight*excess/length, d)
		t.pushes[0] = push{body: c.a, point: pa, force: f}
		t.pushes[1] = push{body: c.b, point: pb, force: r3.Scale(-1, f)}
		t.n = 2
		return t, nil

	case anchorContact:
		var t term
		pa, err := m.nucleotide(c.from)
		if err != nil {
			return t, err
		}
		d := r3.Sub(pa, c.target)
		t.strain = m.cfg.AnchorStiffness * r3.Dot(d, d)
		t.pushes[0] = push{body: c.a, point: pa, force: r3.Scale(-2*m.cfg.AnchorStiffness, d)}
		t.n = 1
		return t, nil

	default:
		return term{}, fmt.Errorf("unknown contact kind %d", c.kind)
	}
}

func (m *model) nucleotide(n strand.Nucl) (r3.Vec, error) {
	h, err := m.d.Helix(n.Helix)
	if err != nil {
		return r3.Vec{}, err
	}
	return h.NucleotidePosition(m.d.Parameters, n.Position, n.Forward)
}

// step integrates one clamped gradient step scaled by scale.
func (m *model) step(poses []pose, forces, torques []r3.Vec, scale float64) []pose {
	next := slices.Clone(poses)
	for i, b := range m.bodies {
		if b.fixed {
			continue
		}
		dt := clampNorm(r3.Scale(m.cfg.StepSize, forces[i]), m.cfg.MaxTranslation)
		w := clampNorm(r3.Scale(m.cfg.StepSize/b.inertia, torques[i]), m.cfg.MaxRotation)
		next[i] = pose{
			T: r3.Add(poses[i].T, r3.Scale(scale, dt)),
			R: geom.FromRotationVector(r3.Scale(scale, w)).Mul(poses[i].R).Normalised(),
		}
	}
	return next
}

func clampNorm(v r3.Vec, limit float64) r3.Vec {
	if n := r3.Norm(v); n > limit {
		return r3.Scale(limit/n, v)
	}
	return v
}

// moved reports whether a body pose differs from its starting pose.
func moved(p pose) bool {
	return p.T != (r3.Vec{}) || p.R != rest.R
}
