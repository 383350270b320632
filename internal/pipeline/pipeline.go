// Package pipeline turns an inbound notification batch into submitted
// decision results. Processing happens after the HTTP response is sent;
// outcomes are recorded in a Sink so they stay observable.
package pipeline

import (
	"context"

	"github.com/ignite/decision-gateway/internal/bulk"
	"github.com/ignite/decision-gateway/internal/configstore"
	"github.com/ignite/decision-gateway/internal/decision"
	"github.com/ignite/decision-gateway/internal/pkg/logger"
)

// Submitter delivers partitioned decision results to the platform.
// *bulk.Client satisfies it.
type Submitter interface {
	SubmitAll(ctx context.Context, instanceID, executionID string, records []decision.Record, identifierField string) []bulk.SubmitResult
}

// Pipeline evaluates notification batches and submits the results.
type Pipeline struct {
	submitter       Submitter
	sink            *Sink
	identifierField string
}

func New(submitter Submitter, sink *Sink, identifierField string) *Pipeline {
	if identifierField == "" {
		identifierField = "EmailAddress"
	}
	return &Pipeline{
		submitter:       submitter,
		sink:            sink,
		identifierField: identifierField,
	}
}

// Sink exposes the execution sink for status lookups.
func (p *Pipeline) Sink() *Sink {
	return p.sink
}

// Process evaluates every contact in the batch against the instance's
// configured service and submits one import per non-empty outcome
// partition. A contact whose evaluation fails is routed to the errored
// outcome rather than aborting the batch; a partition whose submission
// fails is logged and recorded without affecting its siblings.
func (p *Pipeline) Process(ctx context.Context, inst *configstore.Instance, executionID string, contacts []decision.Contact) {
	p.sink.Begin(inst.ID, executionID, len(contacts))

	records := p.evaluate(inst, contacts)

	results := p.submitter.SubmitAll(ctx, inst.ID, executionID, records, p.identifierField)

	partitions := make([]PartitionResult, 0, len(results))
	for _, res := range results {
		pr := PartitionResult{
			Outcome:  res.Outcome,
			Contacts: res.Contacts,
			SyncURI:  res.SyncURI,
		}
		if res.Err != nil {
			pr.Error = res.Err.Error()
			logger.Error("partition submission failed",
				"instance_id", inst.ID,
				"execution_id", executionID,
				"outcome", string(res.Outcome),
				"contacts", res.Contacts,
				"error", res.Err.Error())
		}
		partitions = append(partitions, pr)
	}

	p.sink.Finish(inst.ID, executionID, partitions)
}

func (p *Pipeline) evaluate(inst *configstore.Instance, contacts []decision.Contact) []decision.Record {
	records := make([]decision.Record, 0, len(contacts))

	eval, err := decision.NewEvaluator(inst.ServiceType)
	if err != nil {
		// Unknown service type: every contact becomes errored so the
		// platform still hears back about the batch.
		logger.Error("cannot evaluate batch",
			"instance_id", inst.ID,
			"service_type", inst.ServiceType,
			"error", err.Error())
		for _, contact := range contacts {
			records = append(records, decision.Record{Contact: contact, Outcome: decision.OutcomeErrored})
		}
		return records
	}

	for _, contact := range contacts {
		outcome, err := eval.Evaluate(contact, inst.Config)
		if err != nil || !outcome.Valid() {
			outcome = decision.OutcomeErrored
		}
		records = append(records, decision.Record{Contact: contact, Outcome: outcome})
	}
	return records
}
