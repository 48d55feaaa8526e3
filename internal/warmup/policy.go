// Package warmup computes daily send limits for sending domains ramping up
// their delivery reputation.
package warmup

import (
	"time"

	"outreach-engine-go/internal/models"
)

// ScheduleCustom bypasses tier lookup and uses the domain's raw override.
const ScheduleCustom = "custom"

// Tier is one step of a warmup schedule. DaysSinceStart is the elapsed-day
// threshold at which Limit takes effect.
type Tier struct {
	DaysSinceStart int
	Limit          int
}

// Schedule is an ordered list of tiers, monotonic in DaysSinceStart. Tier 0
// is always present.
type Schedule []Tier

// Named schedules differ only in tier steepness; they are configuration
// data, overridable per domain via the custom schedule.
var schedules = map[string]Schedule{
	"slow": {
		{0, 5}, {7, 10}, {14, 20}, {21, 35}, {28, 50}, {42, 75}, {56, 100},
	},
	"standard": {
		{0, 10}, {7, 20}, {14, 40}, {21, 70}, {28, 100}, {35, 150}, {42, 200},
	},
	"aggressive": {
		{0, 20}, {7, 50}, {14, 100}, {21, 200}, {28, 300}, {35, 400},
	},
	"pre-warmed": {
		{0, 100}, {7, 200}, {14, 350}, {21, 500},
	},
}

// ScheduleByName returns a named schedule, falling back to standard for
// unknown names.
func ScheduleByName(name string) Schedule {
	if s, ok := schedules[name]; ok {
		return s
	}
	return schedules["standard"]
}

// Policy computes daily limits from warmup schedules and health scores.
// Now is injectable for tests; the zero value is not usable, use NewPolicy.
type Policy struct {
	now func() time.Time
}

// NewPolicy creates a warmup policy using the system clock
func NewPolicy() *Policy {
	return &Policy{now: time.Now}
}

// NewPolicyWithClock creates a warmup policy with a fixed clock source
func NewPolicyWithClock(now func() time.Time) *Policy {
	return &Policy{now: now}
}

// DailyLimit returns the number of emails the domain may send today.
// Custom schedules use the raw override; named schedules use the last tier
// whose threshold has elapsed, scaled by health score and clamped to 1.
func (p *Policy) DailyLimit(domain *models.SendingDomain) int {
	if domain.WarmupSchedule == ScheduleCustom {
		return p.scaleByHealth(domain.DailyLimitOverride, domain.HealthScore)
	}

	schedule := ScheduleByName(domain.WarmupSchedule)
	days := p.daysSinceStart(domain)

	limit := schedule[0].Limit
	for _, tier := range schedule {
		if tier.DaysSinceStart <= days {
			limit = tier.Limit
		}
	}

	return p.scaleByHealth(limit, domain.HealthScore)
}

// scaleByHealth applies the health-score multiplier. A nil score means the
// signal is unknown and no scaling is applied.
func (p *Policy) scaleByHealth(limit int, score *int) int {
	if score == nil {
		if limit < 1 {
			return 1
		}
		return limit
	}

	var factor float64
	switch {
	case *score >= 90:
		factor = 1.0
	case *score >= 70:
		factor = 0.9
	case *score >= 50:
		factor = 0.75
	default:
		factor = 0.5
	}

	scaled := int(float64(limit) * factor)
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

func (p *Policy) daysSinceStart(domain *models.SendingDomain) int {
	days := int(p.now().Sub(domain.WarmupStartDate).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days
}

// Progress describes where a domain is in its warmup ramp, for operators
type Progress struct {
	DaysSinceStart  int  `json:"days_since_start"`
	CurrentTier     int  `json:"current_tier"`
	CurrentLimit    int  `json:"current_limit"`
	NextTier        *int `json:"next_tier,omitempty"`
	DaysToNextTier  *int `json:"days_to_next_tier,omitempty"`
	PercentComplete int  `json:"percent_complete"`
}

// Progress reports warmup progress for observability. Custom-schedule
// domains report against the standard schedule shape with their override
// as the current limit.
func (p *Policy) Progress(domain *models.SendingDomain) Progress {
	schedule := ScheduleByName(domain.WarmupSchedule)
	days := p.daysSinceStart(domain)

	tierIdx := 0
	for i, tier := range schedule {
		if tier.DaysSinceStart <= days {
			tierIdx = i
		}
	}

	prog := Progress{
		DaysSinceStart: days,
		CurrentTier:    tierIdx,
		CurrentLimit:   p.DailyLimit(domain),
	}

	if tierIdx+1 < len(schedule) {
		next := schedule[tierIdx+1]
		nextTier := tierIdx + 1
		daysToNext := next.DaysSinceStart - days
		prog.NextTier = &nextTier
		prog.DaysToNextTier = &daysToNext
	}

	finalDays := schedule[len(schedule)-1].DaysSinceStart
	if finalDays > 0 {
		pct := int(float64(days)/float64(finalDays)*100 + 0.5)
		if pct > 100 {
			pct = 100
		}
		prog.PercentComplete = pct
	} else {
		prog.PercentComplete = 100
	}

	return prog
}
