package badge

import (
	"time"

	"github.com/google/uuid"
)

const (
	// OGName is the catalog name of the early-member badge.
	OGName = "OG"
	// OGMemberLimit bounds the registration index that still qualifies for OG.
	OGMemberLimit = 10000
)

type Definition struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsOGBadge   bool      `json:"is_og_badge" db:"is_og_badge"`
	Icon        string    `json:"icon" db:"icon"`
	Criteria    Criteria  `json:"criteria" db:"criteria"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Award struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	BadgeID   uuid.UUID `json:"badge_id" db:"badge_id"`
	AwardedAt time.Time `json:"awarded_at" db:"awarded_at"`
}

type WithStatus struct {
	Definition
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Metrics is the snapshot of a user the catalog is evaluated against.
// RegistrationIndex is the zero-based signup position, or -1 when unknown.
type Metrics struct {
	KelpPoints          float64
	CO2eOffset          float64
	Streak              float64
	ChallengesCompleted float64
	RegistrationIndex   int
}

// IsOG reports whether the definition is the positional early-member badge.
func (d Definition) IsOG() bool {
	if d.Name == OGName {
		return true
	}
	_, ok := d.Criteria.Threshold(CriterionOG)
	return ok
}

// EarnedBy reports whether any single criterion of d is met by m.
func (d Definition) EarnedBy(m Metrics) bool {
	if d.IsOG() && m.RegistrationIndex >= 0 && m.RegistrationIndex < OGMemberLimit {
		return true
	}
	for _, c := range d.Criteria {
		if c.MetBy(m) {
			return true
		}
	}
	return false
}

// Seed is the catalog inserted when the badges table is empty.
func Seed() []Definition {
	return []Definition{
		{
			Name:        OGName,
			Description: "One of the first 10,000 people to join Kelp",
			IsOGBadge:   true,
			Icon:        "og",
			Criteria:    Criteria{{Kind: CriterionOG, Threshold: 1}},
		},
		{
			Name:        "Eco Hero",
			Description: "Earned 500 Kelp Points",
			Icon:        "eco_hero",
			Criteria:    Criteria{{Kind: CriterionKelpPoints, Threshold: 500}},
		},
		{
			Name:        "Carbon Cutter",
			Description: "Offset 50 kg of CO2e in a week",
			Icon:        "carbon_cutter",
			Criteria:    Criteria{{Kind: CriterionCO2eOffset, Threshold: 50}},
		},
		{
			Name:        "Streak Master",
			Description: "Logged activities 7 days in a row",
			Icon:        "streak_master",
			Criteria:    Criteria{{Kind: CriterionStreak, Threshold: 7}},
		},
		{
			Name:        "Challenge Champion",
			Description: "Completed 5 challenges",
			Icon:        "challenge_champion",
			Criteria:    Criteria{{Kind: CriterionChallengesCompleted, Threshold: 5}},
		},
	}
}
