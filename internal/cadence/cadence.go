// Package cadence converts sequence step numbers into send times and
// advances sequences through their steps.
package cadence

import (
	"time"

	"outreach-engine-go/internal/models"
)

// DefaultDelays is the default per-step delay table. Values are days
// elapsed since step 1, not since the previous step, and are non-decreasing.
var DefaultDelays = []int{0, 3, 7}

// Scheduler maps touchpoint steps to due times
type Scheduler struct {
	delays []int
}

// New creates a cadence scheduler. Nil or empty delays fall back to the
// default table.
func New(delays []int) *Scheduler {
	if len(delays) == 0 {
		delays = DefaultDelays
	}
	return &Scheduler{delays: delays}
}

// DelayDays returns the cumulative delay for a 1-based step number. Steps
// past the table's end reuse the final delay.
func (s *Scheduler) DelayDays(step int) int {
	if step < 1 {
		step = 1
	}
	if step > len(s.delays) {
		step = len(s.delays)
	}
	return s.delays[step-1]
}

// Steps returns the number of steps in the delay table
func (s *Scheduler) Steps() int {
	return len(s.delays)
}

// DueAt computes the absolute send time for a step of a sequence started at
// startedAt
func (s *Scheduler) DueAt(startedAt time.Time, step int) time.Time {
	return startedAt.AddDate(0, 0, s.DelayDays(step))
}

// Advance moves the sequence to its next step and returns the next due
// time. When the sequence has no steps left it transitions to completed and
// nil is returned; a completed sequence is never dispatched again.
func (s *Scheduler) Advance(seq *models.EmailSequence) *time.Time {
	if seq.Status != models.SequenceStatusActive {
		return nil
	}

	seq.CurrentStep++
	if seq.CurrentStep > seq.TotalSteps {
		seq.Status = models.SequenceStatusCompleted
		return nil
	}

	due := s.DueAt(seq.StartedAt, seq.CurrentStep)
	return &due
}
