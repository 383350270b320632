package decision

import (
	"fmt"
	"strings"
)

// ScoreBased scores contacts against configurable bonuses and answers
// yes when the total meets the threshold. Configuration:
//
//	score_threshold    number   default 50
//	premium_domains    []string default gmail.com, company.com
//	email_score_bonus  number   default 20
//	company_size_bonus number   default 15
//	activity_bonus     number   default 25
//	executive_titles   []string default ceo, cto, manager, director
//	title_bonus        number   default 30
type ScoreBased struct{}

func (s ScoreBased) Evaluate(contact Contact, config map[string]any) (Outcome, error) {
	threshold := configNumber(config, "score_threshold", 50)
	score := s.score(contact, config)
	if float64(score) >= threshold {
		return OutcomeYes, nil
	}
	return OutcomeNo, nil
}

// score caps at 100.
func (ScoreBased) score(contact Contact, config map[string]any) int {
	score := 0

	email := strings.ToLower(contact.Field("EmailAddress", "emailAddress", "email"))
	premium := configStrings(config, "premium_domains")
	if premium == nil {
		premium = []string{"gmail.com", "company.com"}
	}
	for _, domain := range premium {
		if strings.Contains(email, strings.ToLower(domain)) {
			score += int(configNumber(config, "email_score_bonus", 20))
			break
		}
	}

	if len(contact.Field("Company")) > 10 {
		score += int(configNumber(config, "company_size_bonus", 15))
	}

	if contact.Field("LastActivityDate") != "" {
		score += int(configNumber(config, "activity_bonus", 25))
	}

	title := strings.ToLower(contact.Field("Title"))
	titles := configStrings(config, "executive_titles")
	if titles == nil {
		titles = []string{"ceo", "cto", "manager", "director"}
	}
	for _, keyword := range titles {
		if keyword != "" && strings.Contains(title, strings.ToLower(keyword)) {
			score += int(configNumber(config, "title_bonus", 30))
			break
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

func (ScoreBased) RecordDefinition(map[string]any) map[string]string {
	return map[string]string{
		"ContactID":        "{{Contact.Id}}",
		"EmailAddress":     "{{Contact.Field(C_EmailAddress)}}",
		"Company":          "{{Contact.Field(C_Company)}}",
		"Title":            "{{Contact.Field(C_Title)}}",
		"LastActivityDate": "{{Contact.Field(C_DateModified)}}",
	}
}

func (ScoreBased) ValidateConfig(config map[string]any) error {
	threshold := configNumber(config, "score_threshold", 50)
	if threshold < 0 || threshold > 100 {
		return fmt.Errorf("score_threshold must be between 0 and 100, got %v", threshold)
	}
	return nil
}
