package activity

import (
	"time"

	"github.com/google/uuid"

	"kelpAPI/internal/profile"
)

type Category string

const (
	CategoryTransport Category = "transport"
	CategoryFood      Category = "food"
	CategoryEnergy    Category = "energy"
	CategoryWaste     Category = "waste"
	CategoryShopping  Category = "shopping"
	CategoryOther     Category = "other"
)

// categoryPoints is the Kelp Points reward per logged activity.
var categoryPoints = map[Category]int{
	CategoryTransport: 50,
	CategoryFood:      30,
	CategoryEnergy:    40,
	CategoryWaste:     20,
	CategoryShopping:  25,
	CategoryOther:     10,
}

// MaxCO2e caps the kilograms a single activity may claim.
const MaxCO2e = 1000

type Activity struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Category    Category  `json:"category" db:"category"`
	Description string    `json:"description" db:"description"`
	KelpPoints  int       `json:"kelp_points" db:"kelp_points"`
	CO2e        float64   `json:"co2e" db:"co2e"`
	LoggedAt    time.Time `json:"logged_at" db:"logged_at"`
}

type LogRequest struct {
	Category    Category `json:"category" validate:"required,oneof=transport food energy waste shopping other"`
	Description string   `json:"description" validate:"max=280"`
	CO2e        float64  `json:"co2e" validate:"gte=0,lte=1000"`
}

type LogResult struct {
	Activity  *Activity        `json:"activity"`
	Profile   *profile.Profile `json:"profile"`
	NewBadges []string         `json:"new_badges"`
}

// PointsFor returns the reward for a category and whether the category is known.
func PointsFor(c Category) (int, bool) {
	p, ok := categoryPoints[c]
	return p, ok
}

// NextStreak computes the streak after an activity on day, given the previous
// streak and the day of the previous activity. Days are compared in UTC.
func NextStreak(current int, last *time.Time, day time.Time) int {
	if last == nil {
		return 1
	}
	lastDay := Truncate(*last)
	today := Truncate(day)

	switch {
	case lastDay.Equal(today):
		if current < 1 {
			return 1
		}
		return current
	case lastDay.AddDate(0, 0, 1).Equal(today):
		return current + 1
	default:
		return 1
	}
}

// Truncate returns midnight UTC of t's calendar day.
func Truncate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
