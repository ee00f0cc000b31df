package strand

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/ensnano-geometry/internal/dna"
	"github.com/banshee-data/ensnano-geometry/internal/geomerr"
	"github.com/banshee-data/ensnano-geometry/internal/helix"
)

// Strand is an ordered list of domains, 5' first, with the junctions
// between them.
type Strand struct {
	Domains   []Domain   `json:"domains"`
	Junctions []Junction `json:"junctions"`
	Cyclic    bool       `json:"cyclic,omitempty"`
	Color     uint32     `json:"color"`
	Name      *string    `json:"name,omitempty"`
	Sequence  *string    `json:"sequence,omitempty"`
}

// New returns a strand over domains with its junctions inferred.
func New(domains []Domain, cyclic bool) Strand {
	return Strand{
		Domains:   domains,
		Junctions: ReadJunctions(domains, cyclic),
		Cyclic:    cyclic,
	}
}

// UnmarshalJSON infers the junctions when the file omits them.
func (s *Strand) UnmarshalJSON(data []byte) error {
	type plain Strand
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Strand(v)
	if len(s.Junctions) == 0 && len(s.Domains) > 0 {
		s.Junctions = ReadJunctions(s.Domains, s.Cyclic)
	}
	return nil
}

// Clone returns a deep copy of s.
func (s Strand) Clone() Strand {
	c := s
	c.Domains = append([]Domain(nil), s.Domains...)
	c.Junctions = make([]Junction, len(s.Junctions))
	for i, j := range s.Junctions {
		if j.ID != nil {
			id := *j.ID
			j.ID = &id
		}
		c.Junctions[i] = j
	}
	return c
}

// TotalLength returns the number of nucleotides in the strand.
func (s *Strand) TotalLength() int {
	var n int
	for _, d := range s.Domains {
		n += d.Length()
	}
	return n
}

// junctions returns the junctions aligned with the domains, dropping an
// optional leading Prime5 marker.
func (s *Strand) junctions() []Junction {
	if len(s.Junctions) == len(s.Domains)+1 && s.Junctions[0].Kind == Prime5 {
		return s.Junctions[1:]
	}
	return s.Junctions
}

// Helices resolves helix ids.
type Helices interface {
	Helix(id int) (*helix.Helix, error)
}

func mismatch(format string, args ...any) error {
	return geomerr.New(geomerr.CodeTopologyMismatch, format, args...)
}

// Validate checks that every domain lies inside its helix's declared range
// and that the junctions are those the domains imply. Failures match
// ErrTopologyMismatch; the cause is kept when a helix lookup failed.
func (s *Strand) Validate(hs Helices, p dna.Parameters) error {
	n := len(s.Domains)
	if n == 0 {
		return mismatch("strand has no domain")
	}
	for i, d := range s.Domains {
		switch d.Kind {
		case HelixDomainKind:
			if d.Start >= d.End {
				return mismatch("domain %d: empty interval [%d, %d)", i, d.Start, d.End)
			}
			if hs == nil {
				continue
			}
			h, err := hs.Helix(d.Helix)
			if err != nil {
				return geomerr.Wrap(geomerr.CodeTopologyMismatch, err, "domain %d", i)
			}
			if r, ok := h.DeclaredRange(p); ok && (d.Start < r.Start || d.End > r.End) {
				return geomerr.Wrap(geomerr.CodeTopologyMismatch,
					geomerr.New(geomerr.CodeIndexOutOfDeclaredRange,
						"[%d, %d) not within [%d, %d)", d.Start, d.End, r.Start, r.End),
					"domain %d on helix %d", i, d.Helix)
			}
		case InsertionKind:
			if d.NbNucl < 1 {
				return mismatch("domain %d: insertion of %d nucleotides", i, d.NbNucl)
			}
			nextIdx := i + 1
			if nextIdx == n {
				if !s.Cyclic {
					continue
				}
				nextIdx = 0
			}
			if nextIdx != i && s.Domains[nextIdx].Kind == InsertionKind {
				return mismatch("domains %d and %d are consecutive insertions", i, nextIdx)
			}
			if n == 1 && s.Cyclic {
				return mismatch("cyclic strand made of a single insertion")
			}
		default:
			return mismatch("domain %d: unknown kind %v", i, d.Kind)
		}
	}

	got := s.junctions()
	if len(got) != n {
		return mismatch("%d junctions for %d domains", len(s.Junctions), n)
	}
	want := ReadJunctions(s.Domains, s.Cyclic)
	for i := range want {
		if !got[i].Equivalent(want[i]) {
			return mismatch("junction %d is %v, domains imply %v", i, got[i], want[i])
		}
	}
	return nil
}

// Locate resolves a strand-relative offset, counted from the 5' end, to a
// nucleotide. Offsets inside an insertion have no helix position and, like
// offsets past the 3' end, fail with ErrIndexOutOfDeclaredRange.
func (s *Strand) Locate(offset int) (Nucl, error) {
	if offset < 0 {
		return Nucl{}, geomerr.New(geomerr.CodeIndexOutOfDeclaredRange, "negative offset %d", offset)
	}
	seen := 0
	for i, d := range s.Domains {
		l := d.Length()
		if offset < seen+l {
			nucl, ok := d.Nth(offset - seen)
			if !ok {
				return Nucl{}, geomerr.New(geomerr.CodeIndexOutOfDeclaredRange,
					"offset %d falls in insertion %d", offset, i)
			}
			return nucl, nil
		}
		seen += l
	}
	return Nucl{}, geomerr.New(geomerr.CodeIndexOutOfDeclaredRange,
		"offset %d past strand length %d", offset, seen)
}

// NucleotideFrame returns the 3-D frame of the nucleotide at offset.
func (s *Strand) NucleotideFrame(hs Helices, p dna.Parameters, offset int) (Nucl, helix.Frame, error) {
	nucl, err := s.Locate(offset)
	if err != nil {
		return Nucl{}, helix.Frame{}, err
	}
	h, err := hs.Helix(nucl.Helix)
	if err != nil {
		return nucl, helix.Frame{}, err
	}
	f, err := h.Frame(p, nucl.Position, nucl.Forward)
	if err != nil {
		return nucl, helix.Frame{}, fmt.Errorf("offset %d (%v): %w", offset, nucl, err)
	}
	return nucl, f, nil
}

// Nucleotides lists the helix nucleotides of the strand in 5'→3' order.
// Insertions contribute nothing.
func (s *Strand) Nucleotides() []Nucl {
	out := make([]Nucl, 0, s.TotalLength())
	for _, d := range s.Domains {
		for k := 0; k < d.Length(); k++ {
			if n, ok := d.Nth(k); ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// Xover is a cross-over between the 3' end of one domain and the 5' end of
// the next helix domain.
type Xover struct {
	From Nucl `json:"from"`
	To   Nucl `json:"to"`
}

// CrossOvers lists the cross-overs named by the junctions. Insertions are
// skipped: the cross-over joins the helix domains around them.
func (s *Strand) CrossOvers() []Xover {
	js := s.junctions()
	n := len(s.Domains)
	var out []Xover
	lastHelix := -1
	if s.Cyclic {
		for i := n - 1; i >= 0; i-- {
			if s.Domains[i].Kind == HelixDomainKind {
				lastHelix = i
				break
			}
		}
	}
	for i := 0; i < n && i < len(js); i++ {
		if s.Domains[i].Kind == HelixDomainKind {
			lastHelix = i
		}
		if js[i].Kind != CrossOver || lastHelix < 0 {
			continue
		}
		next := i + 1
		if next == n {
			if !s.Cyclic {
				continue
			}
			next = 0
		}
		from, ok1 := s.Domains[lastHelix].Prime3End()
		to, ok2 := s.Domains[next].Prime5End()
		if ok1 && ok2 {
			out = append(out, Xover{From: from, To: to})
		}
	}
	return out
}
