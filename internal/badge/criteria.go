package badge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

type CriterionKind string

const (
	CriterionOG                  CriterionKind = "og"
	CriterionKelpPoints          CriterionKind = "kelp_points"
	CriterionCO2eOffset          CriterionKind = "co2e_offset"
	CriterionStreak              CriterionKind = "streak"
	CriterionChallengesCompleted CriterionKind = "challenges_completed"
)

// kindOrder fixes the serialization order of criteria keys.
var kindOrder = map[CriterionKind]int{
	CriterionOG:                  0,
	CriterionKelpPoints:          1,
	CriterionCO2eOffset:          2,
	CriterionStreak:              3,
	CriterionChallengesCompleted: 4,
}

func (k CriterionKind) Valid() bool {
	_, ok := kindOrder[k]
	return ok
}

type Criterion struct {
	Kind      CriterionKind `json:"kind"`
	Threshold float64       `json:"threshold"`
}

// MetBy compares the metric behind c.Kind against the threshold, inclusive.
// The og kind is positional and is decided by Definition.EarnedBy.
func (c Criterion) MetBy(m Metrics) bool {
	switch c.Kind {
	case CriterionOG:
		return false
	case CriterionKelpPoints:
		return m.KelpPoints >= c.Threshold
	case CriterionCO2eOffset:
		return m.CO2eOffset >= c.Threshold
	case CriterionStreak:
		return m.Streak >= c.Threshold
	case CriterionChallengesCompleted:
		return m.ChallengesCompleted >= c.Threshold
	default:
		return false
	}
}

// Criteria is stored and transmitted as a sparse object, e.g. {"kelp_points": 500}.
type Criteria []Criterion

func (cs Criteria) Threshold(kind CriterionKind) (float64, bool) {
	for _, c := range cs {
		if c.Kind == kind {
			return c.Threshold, true
		}
	}
	return 0, false
}

func (cs Criteria) MarshalJSON() ([]byte, error) {
	sorted := make(Criteria, len(cs))
	copy(sorted, cs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return kindOrder[sorted[i].Kind] < kindOrder[sorted[j].Kind]
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range sorted {
		if !c.Kind.Valid() {
			return nil, fmt.Errorf("unknown criterion kind %q", c.Kind)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(string(c.Kind))
		val, err := json.Marshal(c.Threshold)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (cs *Criteria) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*cs = nil
		return nil
	}

	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid criteria: %w", err)
	}

	out := make(Criteria, 0, len(raw))
	for key, threshold := range raw {
		kind := CriterionKind(key)
		if !kind.Valid() {
			return fmt.Errorf("unknown criterion kind %q", key)
		}
		out = append(out, Criterion{Kind: kind, Threshold: threshold})
	}
	sort.Slice(out, func(i, j int) bool {
		return kindOrder[out[i].Kind] < kindOrder[out[j].Kind]
	})

	*cs = out
	return nil
}
