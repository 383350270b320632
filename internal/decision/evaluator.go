package decision

import "fmt"

// Evaluator is the pluggable per-contact decision strategy. Variants are
// selected by service type at instance creation, not by subclassing; the
// pipeline depends only on this interface.
//
// Evaluate may fail per contact; callers map any error (or an
// out-of-set return) to OutcomeErrored for that contact only.
type Evaluator interface {
	// Evaluate decides yes/no/errored for one contact given the
	// instance configuration saved at configure time.
	Evaluate(contact Contact, config map[string]any) (Outcome, error)

	// RecordDefinition returns the platform field expressions this
	// evaluator needs delivered with each notification.
	RecordDefinition(config map[string]any) map[string]string

	// ValidateConfig rejects a malformed configuration payload before
	// it is saved.
	ValidateConfig(config map[string]any) error
}

// Service type identifiers accepted by NewEvaluator.
const (
	ServiceEmailValidation = "email_validation"
	ServiceScoreBased      = "score_based"
	ServiceRegexPattern    = "regex_pattern"
	ServiceConditional     = "conditional"
)

// NewEvaluator returns the evaluator for the given service type. An
// empty type defaults to email validation.
func NewEvaluator(serviceType string) (Evaluator, error) {
	switch serviceType {
	case ServiceEmailValidation, "":
		return &EmailValidation{}, nil
	case ServiceScoreBased:
		return &ScoreBased{}, nil
	case ServiceRegexPattern:
		return &RegexPattern{}, nil
	case ServiceConditional:
		return &Conditional{}, nil
	}
	return nil, fmt.Errorf("decision: unknown service type %q", serviceType)
}

// defaultRecordDefinition is what evaluators request when the
// configuration names no fields of its own.
func defaultRecordDefinition() map[string]string {
	return map[string]string{
		"ContactID":    "{{Contact.Id}}",
		"EmailAddress": "{{Contact.Field(C_EmailAddress)}}",
	}
}

// Configuration payloads arrive as decoded JSON, so values need loose
// extraction: numbers may be float64 or int, lists are []any.

func configString(config map[string]any, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

func configBool(config map[string]any, key string) bool {
	v, _ := config[key].(bool)
	return v
}

func configNumber(config map[string]any, key string, fallback float64) float64 {
	switch v := config[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

func configStrings(config map[string]any, key string) []string {
	raw, ok := config[key].([]any)
	if !ok {
		if typed, ok := config[key].([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func configMaps(config map[string]any, key string) []map[string]any {
	raw, ok := config[key].([]any)
	if !ok {
		if typed, ok := config[key].([]map[string]any); ok {
			return typed
		}
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
