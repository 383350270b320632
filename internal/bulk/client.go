// Package bulk delivers decision results to the platform's Bulk API via
// the three-phase import protocol: create an import definition, upload
// the contact data, then sync the import. Each partition of a batch is
// submitted independently and concurrently.
package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ignite/decision-gateway/internal/decision"
	"github.com/ignite/decision-gateway/internal/oauth"
	"github.com/ignite/decision-gateway/internal/pkg/logger"
)

const bulkBasePath = "/api/bulk/2.0"

// HTTPDoer is the interface for executing HTTP requests; *http.Client
// satisfies it. The transport must be safe for concurrent use, since
// partition submissions share it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client submits decision-result partitions to the remote Bulk API.
// Submissions are not retried: a failed phase abandons that partition
// and the failure is reported in its SubmitResult.
type Client struct {
	baseURL    string
	engine     *oauth.Engine
	httpClient HTTPDoer
}

// NewClient creates a Bulk API client for the given platform base URL.
func NewClient(baseURL string, engine *oauth.Engine) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		engine:  engine,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client HTTPDoer) {
	c.httpClient = client
}

// SubmitAll partitions decisions by outcome and submits every non-empty
// partition concurrently. It returns one SubmitResult per submitted
// partition; the caller decides what to do about partial failures
// (current policy upstream: log and continue).
func (c *Client) SubmitAll(ctx context.Context, instanceID, executionID string, records []decision.Record, identifierField string) []SubmitResult {
	parts := decision.Partition(records)

	results := make([]SubmitResult, 0, len(decision.Outcomes))
	for _, outcome := range decision.Outcomes {
		if len(parts[outcome]) > 0 {
			results = append(results, SubmitResult{Outcome: outcome, Contacts: len(parts[outcome])})
		}
	}

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(res *SubmitResult) {
			defer wg.Done()
			res.SyncURI, res.Err = c.SubmitPartition(ctx, instanceID, executionID, parts[res.Outcome], res.Outcome, identifierField)
		}(&results[i])
	}
	wg.Wait()

	logger.Info("submitted decision results",
		"instance_id", instanceID,
		"execution_id", executionID,
		"partitions", len(results))
	return results
}

// SubmitPartition runs the three-phase protocol for one partition and
// returns the sync resource locator, the only durable evidence the
// partition was delivered. Any unexpected status or transport failure
// abandons the partition at its current phase; phases already completed
// are not rolled back.
func (c *Client) SubmitPartition(ctx context.Context, instanceID, executionID string, contacts []decision.Contact, outcome decision.Outcome, identifierField string) (string, error) {
	// The Bulk API rejects hyphens in decision-instance references.
	cleanInstanceID := strings.ReplaceAll(instanceID, "-", "")

	def := ImportDefinition{
		Name:       fmt.Sprintf("Decision Service Response - %s - %s - %s", instanceID, executionID, outcome),
		UpdateRule: "always",
		Fields: map[string]string{
			identifierField: fmt.Sprintf("{{Contact.Field(C_%s)}}", identifierField),
		},
		SyncActions: []SyncAction{{
			Destination: fmt.Sprintf("{{DecisionInstance(%s).Execution[%s]}}", cleanInstanceID, executionID),
			Action:      "setStatus",
			Status:      string(outcome),
		}},
		IdentifierFieldName: identifierField,
	}

	importURI, err := c.createImport(ctx, def)
	if err != nil {
		return "", fmt.Errorf("create import definition: %w", err)
	}

	if err := c.uploadData(ctx, importURI, contacts, identifierField); err != nil {
		return "", fmt.Errorf("upload contact data: %w", err)
	}

	syncURI, err := c.syncImport(ctx, importURI)
	if err != nil {
		return "", fmt.Errorf("sync import: %w", err)
	}

	logger.Info("partition submitted",
		"instance_id", instanceID,
		"execution_id", executionID,
		"outcome", string(outcome),
		"contacts", len(contacts),
		"sync_uri", syncURI)
	return syncURI, nil
}

func (c *Client) createImport(ctx context.Context, def ImportDefinition) (string, error) {
	body, err := c.post(ctx, c.baseURL+bulkBasePath+"/contacts/imports", def, http.StatusCreated)
	if err != nil {
		return "", err
	}
	var resp uriResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse import response: %w", err)
	}
	if resp.URI == "" {
		return "", fmt.Errorf("import created but no uri returned")
	}
	return resp.URI, nil
}

func (c *Client) uploadData(ctx context.Context, importURI string, contacts []decision.Contact, identifierField string) error {
	// Upload carries only the identifier field per contact; a contact
	// missing it under every known spelling uploads as an empty string
	// rather than failing the batch.
	records := make([]map[string]string, 0, len(contacts))
	for _, contact := range contacts {
		records = append(records, map[string]string{
			identifierField: identifierValue(contact, identifierField),
		})
	}

	_, err := c.post(ctx, c.baseURL+bulkBasePath+importURI+"/data", records, http.StatusNoContent)
	return err
}

func (c *Client) syncImport(ctx context.Context, importURI string) (string, error) {
	body, err := c.post(ctx, c.baseURL+bulkBasePath+"/syncs", syncRequest{SyncedInstanceURI: importURI}, http.StatusCreated)
	if err != nil {
		return "", err
	}
	var resp uriResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse sync response: %w", err)
	}
	if resp.URI == "" {
		return "", fmt.Errorf("sync created but no uri returned")
	}
	return resp.URI, nil
}

// post executes one signed POST. Signing happens here, per call, because
// nonce and timestamp are call-specific.
func (c *Client) post(ctx context.Context, url string, body any, wantStatus int) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	authHeader, err := c.engine.Sign(http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}
	req.Header.Set("Authorization", authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != wantStatus {
		return nil, fmt.Errorf("unexpected status %d (want %d): %s", resp.StatusCode, wantStatus, string(respBody))
	}
	return respBody, nil
}

// identifierFallbacks maps a canonical identifier field to the
// alternate spellings seen in notification payloads.
var identifierFallbacks = map[string][]string{
	"EmailAddress": {"emailAddress", "email"},
}

func identifierValue(contact decision.Contact, field string) string {
	if v := contact[field]; v != "" {
		return v
	}
	if alts, ok := identifierFallbacks[field]; ok {
		return contact.Field(alts...)
	}
	if field != "" {
		return contact.Field(strings.ToLower(field[:1])+field[1:], strings.ToLower(field))
	}
	return ""
}
