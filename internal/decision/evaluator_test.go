package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvaluator(t *testing.T) {
	for _, serviceType := range []string{
		"", ServiceEmailValidation, ServiceScoreBased, ServiceRegexPattern, ServiceConditional,
	} {
		eval, err := NewEvaluator(serviceType)
		require.NoError(t, err, "service type %q", serviceType)
		require.NotNil(t, eval)
	}

	_, err := NewEvaluator("fortune_teller")
	assert.Error(t, err)
}

func TestEmailValidation(t *testing.T) {
	eval := EmailValidation{}

	tests := []struct {
		name    string
		contact Contact
		config  map[string]any
		want    Outcome
	}{
		{"valid email", Contact{"EmailAddress": "a@x.com"}, nil, OutcomeYes},
		{"lowercase field spelling", Contact{"emailAddress": "a@x.com"}, nil, OutcomeYes},
		{"bare email field spelling", Contact{"email": "a@x.com"}, nil, OutcomeYes},
		{"missing email", Contact{}, nil, OutcomeNo},
		{"no at sign", Contact{"EmailAddress": "not-an-email"}, nil, OutcomeNo},
		{"dotless domain allowed by default", Contact{"EmailAddress": "a@localhost"}, nil, OutcomeYes},
		{"dotless domain rejected when required",
			Contact{"EmailAddress": "a@localhost"},
			map[string]any{"require_domain": true}, OutcomeNo},
		{"blocked domain",
			Contact{"EmailAddress": "a@Spam.COM"},
			map[string]any{"blocked_domains": []any{"spam.com"}}, OutcomeNo},
		{"non-blocked domain",
			Contact{"EmailAddress": "a@x.com"},
			map[string]any{"blocked_domains": []any{"spam.com"}}, OutcomeYes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.Evaluate(tt.contact, tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScoreBased(t *testing.T) {
	eval := ScoreBased{}

	// Premium domain (20) + long company (15) + activity (25) = 60 >= 50.
	hot := Contact{
		"EmailAddress":     "buyer@gmail.com",
		"Company":          "Enormous Conglomerate Inc",
		"LastActivityDate": "2026-08-01",
	}
	got, err := eval.Evaluate(hot, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeYes, got)

	// Nothing scores: 0 < 50.
	cold := Contact{"EmailAddress": "z@unknown.example"}
	got, err = eval.Evaluate(cold, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNo, got)

	// Custom threshold flips the cold contact.
	got, err = eval.Evaluate(cold, map[string]any{"score_threshold": float64(0)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeYes, got)

	// Executive title bonus.
	exec := Contact{"EmailAddress": "z@unknown.example", "Title": "VP and Director of Ops"}
	got, err = eval.Evaluate(exec, map[string]any{"score_threshold": float64(30)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeYes, got)
}

func TestScoreBasedValidateConfig(t *testing.T) {
	eval := ScoreBased{}
	assert.NoError(t, eval.ValidateConfig(map[string]any{"score_threshold": float64(75)}))
	assert.Error(t, eval.ValidateConfig(map[string]any{"score_threshold": float64(200)}))
}

func TestRegexPattern(t *testing.T) {
	eval := RegexPattern{}
	config := map[string]any{
		"patterns": []any{
			map[string]any{"field": "EmailAddress", "pattern": `@acme\.com$`},
			map[string]any{"field": "Title", "pattern": "engineer"},
		},
	}

	contact := Contact{"EmailAddress": "dev@acme.com", "Title": "Staff Accountant"}

	// Default mode is any: one match suffices.
	got, err := eval.Evaluate(contact, config)
	require.NoError(t, err)
	assert.Equal(t, OutcomeYes, got)

	// all mode needs both.
	config["match_mode"] = "all"
	got, err = eval.Evaluate(contact, config)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNo, got)

	contact["Title"] = "Software ENGINEER"
	got, err = eval.Evaluate(contact, config)
	require.NoError(t, err)
	assert.Equal(t, OutcomeYes, got, "matching is case-insensitive")

	// No configured patterns means no.
	got, err = eval.Evaluate(contact, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNo, got)
}

func TestRegexPatternValidateConfig(t *testing.T) {
	eval := RegexPattern{}
	assert.NoError(t, eval.ValidateConfig(map[string]any{
		"patterns": []any{map[string]any{"field": "a", "pattern": "x+"}},
	}))
	assert.Error(t, eval.ValidateConfig(map[string]any{
		"patterns": []any{map[string]any{"field": "a", "pattern": "("}},
	}))
}

func TestConditional(t *testing.T) {
	eval := Conditional{}
	config := map[string]any{
		"conditions": []any{
			map[string]any{"field": "Country", "operator": "equals", "value": "DE", "result": "yes"},
			map[string]any{"field": "EmailAddress", "operator": "ends_with", "value": ".gov", "result": "errored"},
		},
		"default_result": "no",
	}

	got, err := eval.Evaluate(Contact{"Country": "de"}, config)
	require.NoError(t, err)
	assert.Equal(t, OutcomeYes, got, "first matching condition wins, case-insensitive")

	got, err = eval.Evaluate(Contact{"Country": "FR", "EmailAddress": "a@agency.gov"}, config)
	require.NoError(t, err)
	assert.Equal(t, OutcomeErrored, got)

	got, err = eval.Evaluate(Contact{"Country": "FR", "EmailAddress": "a@x.com"}, config)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNo, got, "falls through to default_result")

	got, err = eval.Evaluate(Contact{}, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNo, got, "no conditions, no default: no")
}

func TestConditionalOperators(t *testing.T) {
	eval := Conditional{}
	contact := Contact{"Title": "Senior Engineer"}

	tests := []struct {
		operator string
		value    string
		want     bool
	}{
		{"equals", "senior engineer", true},
		{"equals", "engineer", false},
		{"contains", "eng", true},
		{"starts_with", "senior", true},
		{"starts_with", "engineer", false},
		{"ends_with", "engineer", true},
		{"not_equals", "intern", true},
		{"not_contains", "intern", true},
		{"not_contains", "eng", false},
		{"regex", "^sen.*eer$", true},
		{"regex", "(", false},
	}

	for _, tt := range tests {
		t.Run(tt.operator+"/"+tt.value, func(t *testing.T) {
			got := eval.matches(contact, map[string]any{
				"field": "Title", "operator": tt.operator, "value": tt.value,
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditionalValidateConfig(t *testing.T) {
	eval := Conditional{}
	assert.Error(t, eval.ValidateConfig(map[string]any{
		"conditions": []any{map[string]any{"operator": "sounds_like"}},
	}))
	assert.Error(t, eval.ValidateConfig(map[string]any{
		"conditions": []any{map[string]any{"operator": "equals", "result": "maybe"}},
	}))
	assert.Error(t, eval.ValidateConfig(map[string]any{"default_result": "perhaps"}))
	assert.NoError(t, eval.ValidateConfig(map[string]any{
		"conditions":     []any{map[string]any{"field": "a", "operator": "equals", "value": "b", "result": "yes"}},
		"default_result": "no",
	}))
}

func TestRecordDefinitions(t *testing.T) {
	emailDef := EmailValidation{}.RecordDefinition(nil)
	assert.Equal(t, "{{Contact.Id}}", emailDef["ContactID"])
	assert.Equal(t, "{{Contact.Field(C_EmailAddress)}}", emailDef["EmailAddress"])

	scoreDef := ScoreBased{}.RecordDefinition(nil)
	assert.Contains(t, scoreDef, "Company")
	assert.Contains(t, scoreDef, "Title")

	regexDef := RegexPattern{}.RecordDefinition(map[string]any{
		"patterns": []any{map[string]any{
			"field": "Zip", "pattern": `\d{5}`, "eloqua_field": "{{Contact.Field(C_Zip_Postal)}}",
		}},
	})
	assert.Equal(t, "{{Contact.Field(C_Zip_Postal)}}", regexDef["Zip"])

	condDef := Conditional{}.RecordDefinition(nil)
	assert.Contains(t, condDef, "EmailAddress")
}
