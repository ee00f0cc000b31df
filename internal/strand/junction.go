package strand

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JunctionKind tags the link between two consecutive domains.
type JunctionKind int

const (
	// Adjacent domains continue each other on the same helix strand.
	Adjacent JunctionKind = iota
	// CrossOver links domains that are not contiguous.
	CrossOver
	// Prime3 ends the strand after the preceding domain.
	Prime3
	// Prime5 marks the start of the strand before the first domain.
	Prime5
)

func (k JunctionKind) String() string {
	switch k {
	case Adjacent:
		return "Adjacent"
	case CrossOver:
		return "CrossOver"
	case Prime3:
		return "Prime3"
	case Prime5:
		return "Prime5"
	default:
		return fmt.Sprintf("JunctionKind(%d)", int(k))
	}
}

// Junction links domain i to domain i+1. ID optionally names a cross-over.
type Junction struct {
	Kind JunctionKind
	ID   *int
}

// Junction values without an id.
var (
	AdjacentJunction  = Junction{Kind: Adjacent}
	CrossOverJunction = Junction{Kind: CrossOver}
	Prime3Junction    = Junction{Kind: Prime3}
	Prime5Junction    = Junction{Kind: Prime5}
)

// Equivalent compares kinds and ignores cross-over ids.
func (j Junction) Equivalent(o Junction) bool {
	return j.Kind == o.Kind
}

func (j Junction) String() string {
	if j.Kind == CrossOver && j.ID != nil {
		return fmt.Sprintf("CrossOver(%d)", *j.ID)
	}
	return j.Kind.String()
}

// MarshalJSON writes the kind name, or {"IdentifiedXover": id} for a
// cross-over with an id.
func (j Junction) MarshalJSON() ([]byte, error) {
	switch j.Kind {
	case CrossOver:
		if j.ID != nil {
			return json.Marshal(map[string]int{"IdentifiedXover": *j.ID})
		}
		return json.Marshal("CrossOver")
	case Adjacent, Prime3, Prime5:
		return json.Marshal(j.Kind.String())
	default:
		return nil, fmt.Errorf("marshal junction: unknown kind %v", j.Kind)
	}
}

// UnmarshalJSON accepts the current names and the legacy cross-over
// spellings "UnindentifiedXover" and {"IdentifiedXover": n}.
func (j *Junction) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var v map[string]int
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode junction: %w", err)
		}
		id, ok := v["IdentifiedXover"]
		if !ok || len(v) != 1 {
			return fmt.Errorf("decode junction: unexpected object %s", data)
		}
		*j = Junction{Kind: CrossOver, ID: &id}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("decode junction: %w", err)
	}
	switch name {
	case "Adjacent":
		*j = AdjacentJunction
	case "CrossOver", "UnindentifiedXover", "UnidentifiedXover":
		*j = CrossOverJunction
	case "Prime3":
		*j = Prime3Junction
	case "Prime5":
		*j = Prime5Junction
	default:
		return fmt.Errorf("decode junction: unknown kind %q", name)
	}
	return nil
}

// link returns the junction between the 3' end of prime5 and the 5' end of
// prime3: Adjacent when one continues the other, CrossOver otherwise.
func link(prime5, prime3 Domain) Junction {
	from, ok1 := prime5.Prime3End()
	to, ok2 := prime3.Prime5End()
	if ok1 && ok2 && from.Prime3() == to {
		return AdjacentJunction
	}
	return CrossOverJunction
}

// ReadJunctions infers the junctions of a domain sequence. The result has
// one junction per domain: junction i links domain i to domain i+1, and the
// last one is Prime3 or, for a cyclic strand, the link back to the first
// domain.
//
// An insertion is adjacent to its 5' neighbour. The junction after an
// insertion is the one that would join the surrounding helix domains.
func ReadJunctions(domains []Domain, cyclic bool) []Junction {
	n := len(domains)
	if n == 0 {
		return nil
	}
	out := make([]Junction, 0, n)
	prev := n - 1 // last helix domain seen, for junctions after an insertion

	add := func(i, j int) {
		cur, next := domains[i], domains[j]
		switch {
		case next.Kind == InsertionKind:
			out = append(out, AdjacentJunction)
			if cur.Kind == HelixDomainKind {
				prev = i
			}
		case cur.Kind == InsertionKind:
			if i == 0 && !cyclic {
				out = append(out, AdjacentJunction)
			} else {
				out = append(out, link(domains[prev], next))
			}
		default:
			out = append(out, link(cur, next))
			prev = i
		}
	}

	for i := 0; i < n-1; i++ {
		add(i, i+1)
	}
	if cyclic {
		add(n-1, 0)
	} else {
		out = append(out, Prime3Junction)
	}
	return out
}
