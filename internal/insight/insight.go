package insight

import (
	"fmt"
	"strings"
	"time"

	"kelpAPI/internal/activity"
	"kelpAPI/internal/profile"
)

// LookbackDays is how many days of activity feed a daily insight.
const LookbackDays = 7

type Insight struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Date      time.Time `json:"date" db:"insight_date"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type RunSummary struct {
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
}

// BuildPrompt renders the generator prompt for one user.
func BuildPrompt(p *profile.Profile, recent []activity.Activity) string {
	var b strings.Builder
	b.WriteString("You are Kelp, a friendly sustainability coach. ")
	b.WriteString("Write one short, encouraging insight (max 2 sentences, no markdown) for the user below.\n\n")
	fmt.Fprintf(&b, "Kelp Points: %d\n", p.KelpPoints)
	fmt.Fprintf(&b, "Current streak: %d days\n", p.StreakCount)
	fmt.Fprintf(&b, "CO2e offset this week: %.1f kg\n", p.CO2eWeeklyProgress)

	if len(recent) == 0 {
		fmt.Fprintf(&b, "No activities logged in the last %d days.\n", LookbackDays)
		return b.String()
	}

	totals := map[activity.Category]float64{}
	for _, a := range recent {
		totals[a.Category] += a.CO2e
	}
	fmt.Fprintf(&b, "Activities in the last %d days: %d\n", LookbackDays, len(recent))
	for _, c := range []activity.Category{
		activity.CategoryTransport,
		activity.CategoryFood,
		activity.CategoryEnergy,
		activity.CategoryWaste,
		activity.CategoryShopping,
		activity.CategoryOther,
	} {
		if kg, ok := totals[c]; ok {
			fmt.Fprintf(&b, "- %s: %.1f kg CO2e\n", c, kg)
		}
	}
	return b.String()
}
