package decision

import (
	"fmt"
	"regexp"
)

// RegexPattern matches configured patterns against contact fields.
// Configuration:
//
//	patterns   []{field, pattern, eloqua_field}  patterns to apply
//	match_mode "any" (default) or "all"
//
// A pattern that fails to compile at evaluation time counts as a
// non-match; ValidateConfig rejects it up front so it should not reach
// that point through the configure endpoint.
type RegexPattern struct{}

func (RegexPattern) Evaluate(contact Contact, config map[string]any) (Outcome, error) {
	patterns := configMaps(config, "patterns")

	var matches []bool
	for _, p := range patterns {
		field := configString(p, "field")
		pattern := configString(p, "pattern")
		if field == "" || pattern == "" {
			continue
		}

		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			matches = append(matches, false)
			continue
		}
		matches = append(matches, re.MatchString(contact[field]))
	}

	if len(matches) == 0 {
		return OutcomeNo, nil
	}

	matched := false
	if configString(config, "match_mode") == "all" {
		matched = true
		for _, m := range matches {
			matched = matched && m
		}
	} else {
		for _, m := range matches {
			matched = matched || m
		}
	}

	if matched {
		return OutcomeYes, nil
	}
	return OutcomeNo, nil
}

// RecordDefinition requests the fields named by configured patterns,
// falling back to a generic contact definition when none are configured.
func (RegexPattern) RecordDefinition(config map[string]any) map[string]string {
	def := map[string]string{"ContactID": "{{Contact.Id}}"}
	for _, p := range configMaps(config, "patterns") {
		field := configString(p, "field")
		expr := configString(p, "eloqua_field")
		if field != "" && expr != "" {
			def[field] = expr
		}
	}
	if len(def) == 1 {
		def["EmailAddress"] = "{{Contact.Field(C_EmailAddress)}}"
		def["Company"] = "{{Contact.Field(C_Company)}}"
		def["Title"] = "{{Contact.Field(C_Title)}}"
	}
	return def
}

func (RegexPattern) ValidateConfig(config map[string]any) error {
	for _, p := range configMaps(config, "patterns") {
		pattern := configString(p, "pattern")
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
	}
	return nil
}
