// Package strand describes single strands routed through helices as ordered
// domains joined by junctions, and checks that the two agree.
package strand

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DomainKind tags the two kinds of domain.
type DomainKind int

const (
	// HelixDomainKind is a directed interval of nucleotides on one helix.
	HelixDomainKind DomainKind = iota
	// InsertionKind is a run of nucleotides not placed on any helix.
	InsertionKind
)

func (k DomainKind) String() string {
	switch k {
	case HelixDomainKind:
		return "HelixDomain"
	case InsertionKind:
		return "Insertion"
	default:
		return fmt.Sprintf("DomainKind(%d)", int(k))
	}
}

// Nucl identifies one nucleotide: a helix, an index along it and a strand
// direction.
type Nucl struct {
	Helix    int  `json:"helix"`
	Position int  `json:"position"`
	Forward  bool `json:"forward"`
}

// Prime3 returns the nucleotide following n in the 5'→3' direction.
func (n Nucl) Prime3() Nucl {
	if n.Forward {
		n.Position++
	} else {
		n.Position--
	}
	return n
}

// Prime5 returns the nucleotide preceding n in the 5'→3' direction.
func (n Nucl) Prime5() Nucl {
	if n.Forward {
		n.Position--
	} else {
		n.Position++
	}
	return n
}

func (n Nucl) String() string {
	dir := "fwd"
	if !n.Forward {
		dir = "bwd"
	}
	return fmt.Sprintf("h%d:%d:%s", n.Helix, n.Position, dir)
}

// Domain is either a helix interval [Start, End) or an insertion of NbNucl
// free nucleotides. Fields that do not apply to the kind are zero.
type Domain struct {
	Kind DomainKind

	Helix   int
	Start   int
	End     int
	Forward bool

	NbNucl           int
	AttachedToPrime3 bool

	Sequence *string
}

// HelixDomain returns the interval [start, end) of helix h.
func HelixDomain(h, start, end int, forward bool) Domain {
	return Domain{Kind: HelixDomainKind, Helix: h, Start: start, End: end, Forward: forward}
}

// Insertion returns an insertion of n nucleotides.
func Insertion(n int) Domain {
	return Domain{Kind: InsertionKind, NbNucl: n}
}

// Length returns the number of nucleotides in the domain.
func (d Domain) Length() int {
	switch d.Kind {
	case HelixDomainKind:
		if d.End < d.Start {
			return 0
		}
		return d.End - d.Start
	case InsertionKind:
		return d.NbNucl
	default:
		return 0
	}
}

// Prime5End returns the first nucleotide of a helix domain.
func (d Domain) Prime5End() (Nucl, bool) {
	if d.Kind != HelixDomainKind || d.Length() == 0 {
		return Nucl{}, false
	}
	if d.Forward {
		return Nucl{Helix: d.Helix, Position: d.Start, Forward: true}, true
	}
	return Nucl{Helix: d.Helix, Position: d.End - 1, Forward: false}, true
}

// Prime3End returns the last nucleotide of a helix domain.
func (d Domain) Prime3End() (Nucl, bool) {
	if d.Kind != HelixDomainKind || d.Length() == 0 {
		return Nucl{}, false
	}
	if d.Forward {
		return Nucl{Helix: d.Helix, Position: d.End - 1, Forward: true}, true
	}
	return Nucl{Helix: d.Helix, Position: d.Start, Forward: false}, true
}

// Nth returns the k-th nucleotide of a helix domain in 5'→3' order.
func (d Domain) Nth(k int) (Nucl, bool) {
	if d.Kind != HelixDomainKind || k < 0 || k >= d.Length() {
		return Nucl{}, false
	}
	if d.Forward {
		return Nucl{Helix: d.Helix, Position: d.Start + k, Forward: true}, true
	}
	return Nucl{Helix: d.Helix, Position: d.End - 1 - k, Forward: false}, true
}

type helixDomainJSON struct {
	Helix    int     `json:"helix"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Forward  bool    `json:"forward"`
	Sequence *string `json:"sequence,omitempty"`
}

type insertionJSON struct {
	NbNucl           int     `json:"nb_nucl"`
	Sequence         *string `json:"sequence,omitempty"`
	AttachedToPrime3 bool    `json:"attached_to_prime3,omitempty"`
}

// MarshalJSON writes the externally tagged form {"HelixDomain": {...}} or
// {"Insertion": {...}}.
func (d Domain) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case HelixDomainKind:
		return json.Marshal(map[string]helixDomainJSON{"HelixDomain": {
			Helix: d.Helix, Start: d.Start, End: d.End, Forward: d.Forward, Sequence: d.Sequence,
		}})
	case InsertionKind:
		return json.Marshal(map[string]insertionJSON{"Insertion": {
			NbNucl: d.NbNucl, Sequence: d.Sequence, AttachedToPrime3: d.AttachedToPrime3,
		}})
	default:
		return nil, fmt.Errorf("marshal domain: unknown kind %v", d.Kind)
	}
}

// UnmarshalJSON reads the tagged form. Old files store an insertion as a
// bare count: {"Insertion": 3}.
func (d *Domain) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("decode domain: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("decode domain: want one tag, got %d", len(tagged))
	}
	for tag, body := range tagged {
		switch tag {
		case "HelixDomain":
			var v helixDomainJSON
			if err := json.Unmarshal(body, &v); err != nil {
				return fmt.Errorf("decode helix domain: %w", err)
			}
			*d = HelixDomain(v.Helix, v.Start, v.End, v.Forward)
			d.Sequence = v.Sequence
		case "Insertion":
			body = bytes.TrimSpace(body)
			if len(body) > 0 && body[0] != '{' {
				var n int
				if err := json.Unmarshal(body, &n); err != nil {
					return fmt.Errorf("decode insertion: %w", err)
				}
				*d = Insertion(n)
				return nil
			}
			var v insertionJSON
			if err := json.Unmarshal(body, &v); err != nil {
				return fmt.Errorf("decode insertion: %w", err)
			}
			*d = Insertion(v.NbNucl)
			d.Sequence = v.Sequence
			d.AttachedToPrime3 = v.AttachedToPrime3
		default:
			return fmt.Errorf("decode domain: unknown tag %q", tag)
		}
	}
	return nil
}
