package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarties/backend/internal/domain"
)

func newTestOrchestrator(reasoning domain.ReasoningService, maxConcurrency int) *FamilyOrchestrator {
	return NewFamilyOrchestrator(
		newTestContextBuilder(nil),
		newTestAnalyzer(reasoning, time.Second),
		maxConcurrency,
		0.1,
		nil,
	)
}

func memberProfile(id, restriction string) domain.UserProfile {
	return domain.UserProfile{
		ID:   id,
		Name: "Member " + id,
		Restrictions: []domain.DietaryRestriction{
			{Type: domain.RestrictionLifestyle, Name: restriction, Severity: domain.SeverityLow},
		},
	}
}

func TestFamilyOrchestrator_PrimaryOnly(t *testing.T) {
	reasoning := NewMockReasoningService(replyDanger)
	household, err := newTestOrchestrator(reasoning, 4).AnalyzeForHousehold(context.Background(), peanutButter(), peanutAllergyProfile("p1"), nil)

	require.NoError(t, err)
	assert.Equal(t, domain.SafetyDanger, household.Primary.SafetyLevel)
	assert.Empty(t, household.Members)
	assert.Equal(t, 1, reasoning.Calls())
}

func TestFamilyOrchestrator_PartialFailure(t *testing.T) {
	reasoning := &MockReasoningService{respond: func(ctx context.Context, p domain.Prompt) (string, error) {
		if promptMentions(p, "raw food") {
			return "", errors.New("upstream reset")
		}
		return replyCaution, nil
	}}
	members := []domain.UserProfile{
		memberProfile("m1", "vegan"),
		memberProfile("m2", "raw food"),
		memberProfile("m3", "vegetarian"),
	}

	household, err := newTestOrchestrator(reasoning, 4).AnalyzeForHousehold(context.Background(), peanutButter(), peanutAllergyProfile("p1"), members)

	require.NoError(t, err)
	require.Len(t, household.Members, 3)

	assert.Equal(t, domain.SafetyDanger, household.Primary.SafetyLevel)
	assert.Equal(t, domain.SourceModel, household.Primary.Source)

	assert.Equal(t, "m1", household.Members[0].ProfileID)
	assert.Equal(t, domain.SourceModel, household.Members[0].Analysis.Source)

	assert.Equal(t, "m2", household.Members[1].ProfileID)
	assert.Equal(t, "Member m2", household.Members[1].ProfileName)
	assert.Equal(t, FallbackResult(0.1), household.Members[1].Analysis)

	assert.Equal(t, "m3", household.Members[2].ProfileID)
	assert.Equal(t, domain.SourceModel, household.Members[2].Analysis.Source)

	assert.Equal(t, 4, reasoning.Calls())
}

func TestFamilyOrchestrator_KeepsInputOrder(t *testing.T) {
	// Earlier members answer last.
	reasoning := &MockReasoningService{respond: func(ctx context.Context, p domain.Prompt) (string, error) {
		switch {
		case promptMentions(p, "member-0"):
			time.Sleep(30 * time.Millisecond)
		case promptMentions(p, "member-1"):
			time.Sleep(15 * time.Millisecond)
		}
		return replySafe, nil
	}}
	members := []domain.UserProfile{
		memberProfile("a", "member-0"),
		memberProfile("b", "member-1"),
		memberProfile("c", "member-2"),
	}

	household, err := newTestOrchestrator(reasoning, 3).AnalyzeForHousehold(context.Background(), peanutButter(), &domain.UserProfile{ID: "p"}, members)

	require.NoError(t, err)
	ids := []string{household.Members[0].ProfileID, household.Members[1].ProfileID, household.Members[2].ProfileID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestFamilyOrchestrator_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	reasoning := &MockReasoningService{respond: func(ctx context.Context, p domain.Prompt) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return replySafe, nil
	}}
	members := make([]domain.UserProfile, 8)
	for i := range members {
		members[i] = memberProfile(string(rune('a'+i)), "vegan")
	}

	household, err := newTestOrchestrator(reasoning, 2).AnalyzeForHousehold(context.Background(), peanutButter(), &domain.UserProfile{ID: "p"}, members)

	require.NoError(t, err)
	assert.Len(t, household.Members, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

type panickingAnalyzer struct {
	mu    sync.Mutex
	calls int
}

func (a *panickingAnalyzer) Analyze(ctx context.Context, rc *domain.RAGContext) domain.DietaryAnalysisResult {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if rc.Profile.ID == "boom" {
		panic("nil map write")
	}
	return domain.DietaryAnalysisResult{SafetyLevel: domain.SafetySafe, Violations: []domain.DietaryViolation{}, Confidence: 0.9, Source: domain.SourceModel}
}

func TestFamilyOrchestrator_RecoversPanics(t *testing.T) {
	analyzer := &panickingAnalyzer{}
	orchestrator := NewFamilyOrchestrator(newTestContextBuilder(nil), analyzer, 2, 0.1, nil)
	members := []domain.UserProfile{{ID: "ok"}, {ID: "boom"}}

	household, err := orchestrator.AnalyzeForHousehold(context.Background(), peanutButter(), &domain.UserProfile{ID: "primary"}, members)

	require.NoError(t, err)
	assert.Equal(t, domain.SafetySafe, household.Primary.SafetyLevel)
	assert.Equal(t, domain.SafetySafe, household.Members[0].Analysis.SafetyLevel)
	assert.Equal(t, FallbackResult(0.1), household.Members[1].Analysis)
	assert.Equal(t, 3, analyzer.calls)
}

func TestFamilyOrchestrator_InvalidInput(t *testing.T) {
	orchestrator := newTestOrchestrator(NewMockReasoningService(replySafe), 2)

	_, err := orchestrator.AnalyzeForHousehold(context.Background(), nil, peanutAllergyProfile("p1"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = orchestrator.AnalyzeForHousehold(context.Background(), peanutButter(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
