package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/decision-gateway/internal/bulk"
	"github.com/ignite/decision-gateway/internal/configstore"
	"github.com/ignite/decision-gateway/internal/decision"
)

// fakeSubmitter records what it was asked to submit and replies with
// canned results.
type fakeSubmitter struct {
	mu              sync.Mutex
	records         []decision.Record
	identifierField string
	failOutcomes    map[decision.Outcome]error
}

func (f *fakeSubmitter) SubmitAll(_ context.Context, _, _ string, records []decision.Record, identifierField string) []bulk.SubmitResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.identifierField = identifierField

	parts := decision.Partition(records)
	var results []bulk.SubmitResult
	for _, outcome := range decision.Outcomes {
		if len(parts[outcome]) == 0 {
			continue
		}
		res := bulk.SubmitResult{Outcome: outcome, Contacts: len(parts[outcome]), SyncURI: "/syncs/" + string(outcome)}
		if err := f.failOutcomes[outcome]; err != nil {
			res.SyncURI = ""
			res.Err = err
		}
		results = append(results, res)
	}
	return results
}

func emailInstance() *configstore.Instance {
	return &configstore.Instance{
		ID:          "abc-123",
		ServiceType: decision.ServiceEmailValidation,
		Configured:  true,
		Config:      map[string]any{},
	}
}

func TestProcessCompletes(t *testing.T) {
	submitter := &fakeSubmitter{}
	p := New(submitter, NewSink(), "EmailAddress")

	contacts := []decision.Contact{
		{"EmailAddress": "good@example.com"},
		{"EmailAddress": "not-an-email"},
	}
	p.Process(context.Background(), emailInstance(), "exec-1", contacts)

	run, ok := p.Sink().Get("abc-123", "exec-1")
	require.True(t, ok, "execution not recorded")
	assert.Equal(t, StateCompleted, run.State)
	assert.Equal(t, 2, run.Total)
	assert.False(t, run.CompletedAt.IsZero())
	require.Len(t, run.Partitions, 2)

	byOutcome := make(map[decision.Outcome]PartitionResult)
	for _, part := range run.Partitions {
		byOutcome[part.Outcome] = part
	}
	assert.Equal(t, 1, byOutcome[decision.OutcomeYes].Contacts)
	assert.Equal(t, 1, byOutcome[decision.OutcomeNo].Contacts)
	assert.Equal(t, "/syncs/yes", byOutcome[decision.OutcomeYes].SyncURI)

	assert.Equal(t, "EmailAddress", submitter.identifierField)
	assert.Len(t, submitter.records, 2)
}

func TestProcessPartitionFailureMarksRunFailed(t *testing.T) {
	submitter := &fakeSubmitter{
		failOutcomes: map[decision.Outcome]error{
			decision.OutcomeYes: errors.New("upload contact data: unexpected status 500"),
		},
	}
	p := New(submitter, NewSink(), "EmailAddress")

	contacts := []decision.Contact{
		{"EmailAddress": "good@example.com"},
		{"EmailAddress": "nope"},
	}
	p.Process(context.Background(), emailInstance(), "exec-2", contacts)

	run, ok := p.Sink().Get("abc-123", "exec-2")
	require.True(t, ok)
	assert.Equal(t, StateFailed, run.State)

	var failed, succeeded int
	for _, part := range run.Partitions {
		if part.Error != "" {
			failed++
		} else {
			succeeded++
			assert.NotEmpty(t, part.SyncURI)
		}
	}
	assert.Equal(t, 1, failed, "only the yes partition should fail")
	assert.Equal(t, 1, succeeded, "the no partition must still complete")
}

func TestProcessUnknownServiceTypeErrorsEveryContact(t *testing.T) {
	submitter := &fakeSubmitter{}
	p := New(submitter, NewSink(), "EmailAddress")

	inst := emailInstance()
	inst.ServiceType = "fortune_teller"
	contacts := []decision.Contact{
		{"EmailAddress": "a@example.com"},
		{"EmailAddress": "b@example.com"},
	}
	p.Process(context.Background(), inst, "exec-3", contacts)

	require.Len(t, submitter.records, 2)
	for _, rec := range submitter.records {
		assert.Equal(t, decision.OutcomeErrored, rec.Outcome)
	}

	run, ok := p.Sink().Get("abc-123", "exec-3")
	require.True(t, ok)
	assert.Equal(t, StateCompleted, run.State, "submission itself succeeded")
}

func TestProcessEvaluationErrorIsolated(t *testing.T) {
	submitter := &fakeSubmitter{}
	p := New(submitter, NewSink(), "EmailAddress")

	inst := emailInstance()
	inst.ServiceType = decision.ServiceConditional
	inst.Config = map[string]any{
		"conditions": []map[string]any{
			{"field": "Tier", "operator": "equals", "value": "gold", "result": "maybe"},
		},
		"default_result": "no",
	}

	contacts := []decision.Contact{
		{"Tier": "gold"},   // matching condition carries an invalid result
		{"Tier": "bronze"}, // falls through to default_result
	}
	p.Process(context.Background(), inst, "exec-4", contacts)

	require.Len(t, submitter.records, 2)
	assert.Equal(t, decision.OutcomeErrored, submitter.records[0].Outcome)
	assert.Equal(t, decision.OutcomeNo, submitter.records[1].Outcome)
}

func TestProcessEmptyBatch(t *testing.T) {
	submitter := &fakeSubmitter{}
	p := New(submitter, NewSink(), "EmailAddress")

	p.Process(context.Background(), emailInstance(), "exec-5", nil)

	run, ok := p.Sink().Get("abc-123", "exec-5")
	require.True(t, ok)
	assert.Equal(t, StateCompleted, run.State)
	assert.Zero(t, run.Total)
	assert.Empty(t, run.Partitions)
}

func TestNewDefaultsIdentifierField(t *testing.T) {
	submitter := &fakeSubmitter{}
	p := New(submitter, NewSink(), "")

	p.Process(context.Background(), emailInstance(), "exec-6", []decision.Contact{{"EmailAddress": "a@example.com"}})
	assert.Equal(t, "EmailAddress", submitter.identifierField)
}

func TestSinkUnknownExecution(t *testing.T) {
	sink := NewSink()
	_, ok := sink.Get("abc-123", "never-ran")
	assert.False(t, ok)
}
