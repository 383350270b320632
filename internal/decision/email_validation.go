package decision

import "strings"

// EmailValidation is the default evaluator: yes when the contact has a
// plausible email address, no otherwise. Configuration:
//
//	require_domain  bool      domain part must contain a dot
//	blocked_domains []string  domains rejected outright
type EmailValidation struct{}

func (EmailValidation) Evaluate(contact Contact, config map[string]any) (Outcome, error) {
	email := contact.Field("EmailAddress", "emailAddress", "email")
	at := strings.Index(email, "@")
	if email == "" || at < 0 {
		return OutcomeNo, nil
	}

	domain := strings.ToLower(email[at+1:])
	if configBool(config, "require_domain") && !strings.Contains(domain, ".") {
		return OutcomeNo, nil
	}
	for _, blocked := range configStrings(config, "blocked_domains") {
		if strings.ToLower(blocked) == domain {
			return OutcomeNo, nil
		}
	}
	return OutcomeYes, nil
}

func (EmailValidation) RecordDefinition(map[string]any) map[string]string {
	return defaultRecordDefinition()
}

func (EmailValidation) ValidateConfig(map[string]any) error {
	return nil
}
