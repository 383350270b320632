package bulk

import (
	"github.com/ignite/decision-gateway/internal/decision"
)

// ImportDefinition is the body of the create-import call, phase one of
// the submission protocol.
type ImportDefinition struct {
	Name                string            `json:"name"`
	UpdateRule          string            `json:"updateRule"`
	Fields              map[string]string `json:"fields"`
	SyncActions         []SyncAction      `json:"syncActions"`
	IdentifierFieldName string            `json:"identifierFieldName"`
}

// SyncAction tells the platform what to do when the import syncs; here
// always setStatus against the decision instance's execution.
type SyncAction struct {
	Destination string `json:"destination"`
	Action      string `json:"action"`
	Status      string `json:"status"`
}

// syncRequest is the body of the sync call, phase three.
type syncRequest struct {
	SyncedInstanceURI string `json:"syncedInstanceURI"`
}

// uriResponse is the relevant slice of the platform's create/sync
// responses: the resource locator of the created artifact.
type uriResponse struct {
	URI string `json:"uri"`
}

// SubmitResult is the per-partition outcome of a SubmitAll call. Each
// partition succeeds or fails independently; a failed sibling never
// cancels or rolls back the others.
type SubmitResult struct {
	Outcome  decision.Outcome
	Contacts int
	SyncURI  string
	Err      error
}
