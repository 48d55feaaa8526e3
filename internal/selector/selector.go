// Package selector picks the origin domain for an outbound send.
package selector

import (
	"strings"

	"github.com/sirupsen/logrus"

	"outreach-engine-go/internal/ledger"
	"outreach-engine-go/internal/models"
)

// Selection is a chosen origin domain and its capacity at selection time
type Selection struct {
	Domain            models.SendingDomain
	RemainingCapacity int
}

// Selector chooses an eligible sending domain. Selection is pure: capacity
// is only decremented by the dispatch executor after a confirmed send.
type Selector struct {
	ledger *ledger.Ledger
}

// New creates a domain selector
func New(l *ledger.Ledger) *Selector {
	return &Selector{ledger: l}
}

// Select picks one eligible domain, or nil when every domain is paused or
// out of capacity. A signature hint matching a domain's identity outranks
// the preferred domain, which outranks greedy load balancing.
func (s *Selector) Select(signatureHint string, preferredDomainID uint) (*Selection, error) {
	domains, err := s.ledger.ActiveDomains()
	if err != nil {
		return nil, err
	}

	var eligible []Selection
	for i := range domains {
		if domains[i].IsPaused {
			continue
		}
		remaining, err := s.ledger.RemainingCapacity(&domains[i])
		if err != nil {
			return nil, err
		}
		if remaining <= 0 {
			continue
		}
		eligible = append(eligible, Selection{Domain: domains[i], RemainingCapacity: remaining})
	}

	if len(eligible) == 0 {
		return nil, nil
	}

	// Identity continuity outranks load balancing
	if signatureHint != "" {
		hint := strings.ToLower(signatureHint)
		for i := range eligible {
			d := &eligible[i].Domain
			if strings.Contains(strings.ToLower(d.DisplayName), hint) ||
				strings.Contains(strings.ToLower(d.FromEmail), hint) {
				logrus.WithFields(logrus.Fields{
					"domain": d.Domain,
					"hint":   signatureHint,
				}).Debug("Selected domain by signature hint")
				return &eligible[i], nil
			}
		}
	}

	if preferredDomainID != 0 {
		for i := range eligible {
			if eligible[i].Domain.ID == preferredDomainID {
				return &eligible[i], nil
			}
		}
	}

	// Greedy: most remaining capacity, first seen among equals
	best := &eligible[0]
	for i := 1; i < len(eligible); i++ {
		if eligible[i].RemainingCapacity > best.RemainingCapacity {
			best = &eligible[i]
		}
	}
	return best, nil
}
