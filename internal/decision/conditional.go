package decision

import (
	"fmt"
	"regexp"
	"strings"
)

// Conditional walks an ordered condition list and returns the result of
// the first condition that matches. Configuration:
//
//	conditions     []{field, operator, value, result, eloqua_field}
//	default_result outcome when nothing matches, default "no"
//
// Operators: equals, contains, starts_with, ends_with, not_equals,
// not_contains, regex. Comparisons are case-insensitive.
type Conditional struct{}

var conditionalOperators = map[string]bool{
	"equals":       true,
	"contains":     true,
	"starts_with":  true,
	"ends_with":    true,
	"not_equals":   true,
	"not_contains": true,
	"regex":        true,
}

func (c Conditional) Evaluate(contact Contact, config map[string]any) (Outcome, error) {
	for _, cond := range configMaps(config, "conditions") {
		if !c.matches(contact, cond) {
			continue
		}
		result, ok := ParseOutcome(configString(cond, "result"))
		if !ok {
			return OutcomeErrored, fmt.Errorf("condition result %q is not a valid outcome", configString(cond, "result"))
		}
		return result, nil
	}

	fallback := configString(config, "default_result")
	if fallback == "" {
		return OutcomeNo, nil
	}
	result, ok := ParseOutcome(fallback)
	if !ok {
		return OutcomeErrored, fmt.Errorf("default_result %q is not a valid outcome", fallback)
	}
	return result, nil
}

func (Conditional) matches(contact Contact, cond map[string]any) bool {
	field := configString(cond, "field")
	operator := configString(cond, "operator")
	value := configString(cond, "value")
	if field == "" || operator == "" || value == "" {
		return false
	}

	contactValue, ok := contact[field]
	if !ok {
		return false
	}
	contactValue = strings.ToLower(contactValue)
	value = strings.ToLower(value)

	switch operator {
	case "equals":
		return contactValue == value
	case "contains":
		return strings.Contains(contactValue, value)
	case "starts_with":
		return strings.HasPrefix(contactValue, value)
	case "ends_with":
		return strings.HasSuffix(contactValue, value)
	case "not_equals":
		return contactValue != value
	case "not_contains":
		return !strings.Contains(contactValue, value)
	case "regex":
		re, err := regexp.Compile("(?i)" + value)
		if err != nil {
			return false
		}
		return re.MatchString(contactValue)
	}
	return false
}

func (Conditional) RecordDefinition(config map[string]any) map[string]string {
	def := map[string]string{"ContactID": "{{Contact.Id}}"}
	for _, cond := range configMaps(config, "conditions") {
		field := configString(cond, "field")
		expr := configString(cond, "eloqua_field")
		if field != "" && expr != "" {
			def[field] = expr
		}
	}
	if len(def) == 1 {
		def["EmailAddress"] = "{{Contact.Field(C_EmailAddress)}}"
	}
	return def
}

func (Conditional) ValidateConfig(config map[string]any) error {
	for _, cond := range configMaps(config, "conditions") {
		if op := configString(cond, "operator"); op != "" && !conditionalOperators[op] {
			return fmt.Errorf("unknown condition operator %q", op)
		}
		if result := configString(cond, "result"); result != "" {
			if _, ok := ParseOutcome(result); !ok {
				return fmt.Errorf("condition result %q is not one of yes/no/errored", result)
			}
		}
	}
	if fallback := configString(config, "default_result"); fallback != "" {
		if _, ok := ParseOutcome(fallback); !ok {
			return fmt.Errorf("default_result %q is not one of yes/no/errored", fallback)
		}
	}
	return nil
}
