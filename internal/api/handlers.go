package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ignite/decision-gateway/internal/configstore"
	"github.com/ignite/decision-gateway/internal/decision"
	"github.com/ignite/decision-gateway/internal/oauth"
	"github.com/ignite/decision-gateway/internal/pipeline"
	"github.com/ignite/decision-gateway/internal/pkg/httputil"
	"github.com/ignite/decision-gateway/internal/pkg/logger"
)

// Handlers contains all HTTP handlers for the decision service.
type Handlers struct {
	engine     *oauth.Engine
	store      configstore.Store
	pipeline   *pipeline.Pipeline
	maxRecords int
	skipVerify bool
}

func NewHandlers(engine *oauth.Engine, store configstore.Store, p *pipeline.Pipeline, maxRecords int, skipVerify bool) *Handlers {
	if maxRecords <= 0 {
		maxRecords = 1000
	}
	return &Handlers{
		engine:     engine,
		store:      store,
		pipeline:   p,
		maxRecords: maxRecords,
		skipVerify: skipVerify,
	}
}

// NotificationBody is the batch payload the platform posts to the
// notification endpoint.
type NotificationBody struct {
	Offset       int              `json:"offset"`
	Limit        int              `json:"limit"`
	TotalResults int              `json:"totalResults"`
	Count        int              `json:"count"`
	HasMore      bool             `json:"hasMore"`
	Items        []map[string]any `json:"items"`
}

// RequireOAuth verifies the inbound call's signature before the handler
// runs. A request that fails verification never reaches a handler.
func (h *Handlers) RequireOAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.skipVerify {
			next.ServeHTTP(w, r)
			return
		}
		params := oauth.CollectParams(r)
		if !h.engine.Verify(r.Method, oauth.RequestURL(r), params) {
			logger.Warn("rejected unverifiable request",
				"method", r.Method,
				"path", r.URL.Path)
			httputil.Unauthorized(w, "invalid oauth signature")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// queryParam returns the first non-empty query value among the given
// names. The platform's URL templates let integrators pick the casing,
// so the common spellings are all accepted.
func queryParam(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, name := range names {
		if v := q.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func instanceID(r *http.Request) string {
	return queryParam(r, "instanceId", "instance_id", "InstanceId")
}

func executionID(r *http.Request) string {
	return queryParam(r, "executionId", "execution_id", "ExecutionId")
}

type createRequest struct {
	ServiceType string         `json:"serviceType"`
	Config      map[string]any `json:"config"`
}

// createResponse tells the platform what contact fields to deliver and
// whether the instance needs configuring before activation.
type createResponse struct {
	RecordDefinition      map[string]string `json:"recordDefinition"`
	RequiresConfiguration bool              `json:"requiresConfiguration"`
}

// Create registers a decision instance. The platform may resend the
// create call for the same instance, so registration is an upsert.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	id := instanceID(r)
	if id == "" {
		httputil.BadRequest(w, "instanceId is required")
		return
	}

	var req createRequest
	if r.ContentLength != 0 {
		if !httputil.Decode(w, r, &req) {
			return
		}
	}
	if req.ServiceType == "" {
		req.ServiceType = queryParam(r, "serviceType", "service_type")
	}

	eval, err := decision.NewEvaluator(req.ServiceType)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Config == nil {
		req.Config = map[string]any{}
	}

	inst := &configstore.Instance{
		ID:               id,
		ServiceType:      req.ServiceType,
		Config:           req.Config,
		RecordDefinition: eval.RecordDefinition(req.Config),
	}
	if err := h.store.Create(r.Context(), inst); err != nil {
		httputil.InternalError(w, fmt.Errorf("failed to create instance: %w", err))
		return
	}

	logger.Info("instance created",
		"instance_id", id,
		"service_type", inst.ServiceType)
	httputil.OK(w, createResponse{
		RecordDefinition:      inst.RecordDefinition,
		RequiresConfiguration: true,
	})
}

// Configure validates and saves an instance's configuration. A payload
// the evaluator rejects is not saved.
func (h *Handlers) Configure(w http.ResponseWriter, r *http.Request) {
	id := instanceID(r)
	if id == "" {
		httputil.BadRequest(w, "instanceId is required")
		return
	}

	inst, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, id, err)
		return
	}

	var config map[string]any
	if !httputil.Decode(w, r, &config) {
		return
	}

	eval, err := decision.NewEvaluator(inst.ServiceType)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if err := eval.ValidateConfig(config); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	inst.Config = config
	inst.Configured = true
	inst.RecordDefinition = eval.RecordDefinition(config)
	if err := h.store.Update(r.Context(), inst); err != nil {
		h.storeError(w, id, err)
		return
	}

	logger.Info("instance configured", "instance_id", id)
	httputil.OK(w, inst)
}

// Notify accepts a contact batch, acknowledges immediately, and hands
// the batch to the pipeline. The response says nothing about the
// batch's eventual fate; poll Status for that.
func (h *Handlers) Notify(w http.ResponseWriter, r *http.Request) {
	id := instanceID(r)
	execID := executionID(r)
	if id == "" || execID == "" {
		httputil.BadRequest(w, "instanceId and executionId are required")
		return
	}

	inst, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, id, err)
		return
	}

	var body NotificationBody
	if !httputil.Decode(w, r, &body) {
		return
	}
	if len(body.Items) > h.maxRecords {
		httputil.BadRequest(w, fmt.Sprintf("batch of %d exceeds the %d record limit", len(body.Items), h.maxRecords))
		return
	}

	contacts := make([]decision.Contact, 0, len(body.Items))
	for _, item := range body.Items {
		contacts = append(contacts, contactFromItem(item))
	}

	logger.Info("notification accepted",
		"instance_id", id,
		"execution_id", execID,
		"contacts", len(contacts))

	// Acknowledge first; processing continues after the caller is gone.
	httputil.Accepted(w)
	go h.pipeline.Process(context.Background(), inst, execID, contacts)
}

// Status reports the recorded outcome of one execution.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	id := instanceID(r)
	execID := executionID(r)
	if id == "" || execID == "" {
		httputil.BadRequest(w, "instanceId and executionId are required")
		return
	}

	run, ok := h.pipeline.Sink().Get(id, execID)
	if !ok {
		httputil.NotFound(w, "execution not found")
		return
	}
	httputil.OK(w, run)
}

// Delete removes a decision instance.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := instanceID(r)
	if id == "" {
		httputil.BadRequest(w, "instanceId is required")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.storeError(w, id, err)
		return
	}
	logger.Info("instance deleted", "instance_id", id)
	httputil.NoContent(w)
}

// Instances lists every registered instance.
func (h *Handlers) Instances(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.List(r.Context())
	if err != nil {
		httputil.InternalError(w, fmt.Errorf("failed to list instances: %w", err))
		return
	}
	httputil.OK(w, map[string]any{
		"count":     len(all),
		"instances": all,
	})
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

func (h *Handlers) storeError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, configstore.ErrNotFound) {
		httputil.NotFound(w, "instance not found")
		return
	}
	httputil.InternalError(w, fmt.Errorf("instance %s: %w", id, err))
}

// contactFromItem flattens a notification item into string fields.
// Whole numbers arrive as JSON floats and are printed without the
// trailing decimals; null fields are dropped.
func contactFromItem(item map[string]any) decision.Contact {
	contact := make(decision.Contact, len(item))
	for key, value := range item {
		switch v := value.(type) {
		case string:
			contact[key] = v
		case nil:
		case float64:
			if v == float64(int64(v)) {
				contact[key] = fmt.Sprintf("%d", int64(v))
			} else {
				contact[key] = fmt.Sprintf("%v", v)
			}
		default:
			contact[key] = fmt.Sprintf("%v", v)
		}
	}
	return contact
}
