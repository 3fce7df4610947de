package usage

import "time"

const (
	defaultPlan   = "free"
	defaultLimit  = 25
	defaultPeriod = 30 * 24 * time.Hour
)

// Policy sets the quota granted per period.
type Policy struct {
	Plan   string
	Limit  int
	Period time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.Plan == "" {
		p.Plan = defaultPlan
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Period <= 0 {
		p.Period = defaultPeriod
	}
	return p
}

func (p Policy) fresh(now time.Time) Usage {
	return Usage{Plan: p.Plan, Limit: p.Limit, ResetsAt: now.Add(p.Period)}
}

// roll resets the counter once the window has passed.
func (p Policy) roll(u Usage, now time.Time) (Usage, bool) {
	if now.Before(u.ResetsAt) {
		return u, false
	}
	u.Used = 0
	u.ResetsAt = now.Add(p.Period)
	return u, true
}
