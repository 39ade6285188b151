package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BadgesAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kelp_badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge"},
	)
	BadgeAwardFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kelp_badge_award_failures_total",
			Help: "Total number of badge award attempts that failed in storage",
		},
	)
	ReferralCodesGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kelp_referral_codes_generated_total",
			Help: "Total number of referral codes generated",
		},
	)
	InsightsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kelp_insights_generated_total",
			Help: "Total number of daily insight generations by result",
		},
		[]string{"result"},
	)
)

// Register adds the domain collectors to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(BadgesAwarded)
	reg.MustRegister(BadgeAwardFailures)
	reg.MustRegister(ReferralCodesGenerated)
	reg.MustRegister(InsightsGenerated)
}
