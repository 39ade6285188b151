package profile

import "time"

type Profile struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	ImageURL           string     `json:"imageUrl,omitempty"`
	KelpPoints         int        `json:"kelp_points"`
	StreakCount        int        `json:"streak_count"`
	CO2eWeeklyProgress float64    `json:"co2e_weekly_progress"`
	ReferralCode       *string    `json:"referral_code,omitempty"`
	ReferredBy         *string    `json:"referred_by,omitempty"`
	LastActivityDate   *time.Time `json:"last_activity_date,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Referrer is the public view of a profile returned by code lookups.
type Referrer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func (p *Profile) AsReferrer() *Referrer {
	return &Referrer{ID: p.ID, Username: p.Username, ImageURL: p.ImageURL}
}
