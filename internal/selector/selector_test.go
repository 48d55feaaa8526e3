package selector

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine-go/internal/ledger"
	"outreach-engine-go/internal/models"
	"outreach-engine-go/internal/warmup"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// capStore serves fixed domains whose custom overrides encode the desired
// remaining capacity
type capStore struct {
	domains []models.SendingDomain
}

func (s *capStore) ListActiveDomains() ([]models.SendingDomain, error) {
	out := make([]models.SendingDomain, len(s.domains))
	copy(out, s.domains)
	return out, nil
}

func (s *capStore) GetDomain(id uint) (*models.SendingDomain, error) {
	for i := range s.domains {
		if s.domains[i].ID == id {
			clone := s.domains[i]
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("domain %d not found", id)
}

func (s *capStore) SaveDomain(domain *models.SendingDomain) error {
	for i := range s.domains {
		if s.domains[i].ID == domain.ID {
			s.domains[i] = *domain
			return nil
		}
	}
	return fmt.Errorf("domain %d not found", domain.ID)
}

func (s *capStore) IncrementSentToday(id uint) error {
	for i := range s.domains {
		if s.domains[i].ID == id {
			s.domains[i].SentToday++
			return nil
		}
	}
	return fmt.Errorf("domain %d not found", id)
}

func domainWithCapacity(id uint, name, email string, remaining int) models.SendingDomain {
	return models.SendingDomain{
		ID:                 id,
		Domain:             fmt.Sprintf("mail%d.example.com", id),
		DisplayName:        name,
		FromEmail:          email,
		WarmupSchedule:     warmup.ScheduleCustom,
		DailyLimitOverride: remaining, // sentToday stays 0
		LastResetDate:      "2025-06-15",
		IsActive:           true,
	}
}

func newSelector(domains ...models.SendingDomain) *Selector {
	store := &capStore{domains: domains}
	policy := warmup.NewPolicyWithClock(func() time.Time { return testNow })
	l := ledger.NewWithClock(store, policy, 30*time.Second, func() time.Time { return testNow })
	return New(l)
}

func TestSelectGreedyByCapacity(t *testing.T) {
	s := newSelector(
		domainWithCapacity(1, "Alex Reed", "alex@mail1.example.com", 5),
		domainWithCapacity(2, "Sam Cole", "sam@mail2.example.com", 1),
		domainWithCapacity(3, "Pat Quinn", "pat@mail3.example.com", 12),
	)

	sel, err := s.Select("", 0)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, uint(3), sel.Domain.ID)
	assert.Equal(t, 12, sel.RemainingCapacity)
}

func TestSelectSkipsExhaustedAndPaused(t *testing.T) {
	exhausted := domainWithCapacity(2, "Sam Cole", "sam@mail2.example.com", 10)
	exhausted.SentToday = 10
	paused := domainWithCapacity(3, "Pat Quinn", "pat@mail3.example.com", 12)
	paused.IsPaused = true

	s := newSelector(
		domainWithCapacity(1, "Alex Reed", "alex@mail1.example.com", 5),
		exhausted,
		paused,
	)

	sel, err := s.Select("", 0)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, uint(1), sel.Domain.ID)
}

func TestSelectExhaustionReturnsNil(t *testing.T) {
	exhausted := domainWithCapacity(1, "Alex Reed", "alex@mail1.example.com", 3)
	exhausted.SentToday = 3

	s := newSelector(exhausted)

	sel, err := s.Select("", 0)
	require.NoError(t, err)
	assert.Nil(t, sel, "no capacity must be reported as nil, not an error")
}

func TestSelectSignatureHintBeatsCapacity(t *testing.T) {
	s := newSelector(
		domainWithCapacity(1, "Alex Reed", "alex@mail1.example.com", 5),
		domainWithCapacity(2, "Pat Quinn", "pat@mail2.example.com", 12),
	)

	sel, err := s.Select("alex", 0)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, uint(1), sel.Domain.ID)
}

func TestSelectHintMatchIsCaseInsensitive(t *testing.T) {
	s := newSelector(
		domainWithCapacity(1, "Alex Reed", "alex@mail1.example.com", 5),
		domainWithCapacity(2, "Pat Quinn", "pat@mail2.example.com", 12),
	)

	sel, err := s.Select("ALEX REED", 0)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, uint(1), sel.Domain.ID)
}

func TestSelectPreferredDomain(t *testing.T) {
	s := newSelector(
		domainWithCapacity(1, "Alex Reed", "alex@mail1.example.com", 5),
		domainWithCapacity(2, "Pat Quinn", "pat@mail2.example.com", 12),
	)

	sel, err := s.Select("", 1)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, uint(1), sel.Domain.ID)
}

func TestSelectPreferredIgnoredWhenIneligible(t *testing.T) {
	paused := domainWithCapacity(1, "Alex Reed", "alex@mail1.example.com", 5)
	paused.IsPaused = true

	s := newSelector(
		paused,
		domainWithCapacity(2, "Pat Quinn", "pat@mail2.example.com", 12),
	)

	sel, err := s.Select("", 1)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, uint(2), sel.Domain.ID)
}

func TestSelectStableTieBreak(t *testing.T) {
	s := newSelector(
		domainWithCapacity(1, "Alex Reed", "alex@mail1.example.com", 7),
		domainWithCapacity(2, "Pat Quinn", "pat@mail2.example.com", 7),
	)

	for i := 0; i < 5; i++ {
		sel, err := s.Select("", 0)
		require.NoError(t, err)
		require.NotNil(t, sel)
		assert.Equal(t, uint(1), sel.Domain.ID)
	}
}

func TestSignatureExtractor(t *testing.T) {
	ex := SignatureExtractor{}

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"best closing",
			"Hi there,\n\nWould love to chat.\n\nBest,\nJordan",
			"Jordan",
		},
		{
			"regards with full name",
			"Quick follow-up on my last note.\n\nKind regards,\nAlex Reed",
			"Alex Reed",
		},
		{
			"crlf line endings",
			"Hello!\r\n\r\nThanks,\r\nSam\r\n",
			"Sam",
		},
		{
			"no signature",
			"Just a body with no sign-off at all",
			"",
		},
		{
			"empty body",
			"",
			"",
		},
		{
			"last sign-off wins",
			"Best,\nOld Name\n\n> quoted history\n\nCheers,\nNew Name",
			"New Name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ex.ExtractName(tt.body))
		})
	}
}

func TestNoopExtractor(t *testing.T) {
	assert.Empty(t, NoopExtractor{}.ExtractName("Best,\nJordan"))
}
