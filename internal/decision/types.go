// Package decision holds the domain types of the decision service: the
// closed outcome set, contact records, the batch partitioner, and the
// pluggable per-contact evaluators.
package decision

// Outcome is the result of evaluating a single contact. The set is
// closed: yes, no, and errored are the only legal values, and they map
// directly onto the platform's sync-action status strings.
type Outcome string

const (
	OutcomeYes     Outcome = "yes"
	OutcomeNo      Outcome = "no"
	OutcomeErrored Outcome = "errored"
)

// Outcomes lists the legal values in submission order.
var Outcomes = []Outcome{OutcomeYes, OutcomeNo, OutcomeErrored}

// Valid reports whether o is a member of the closed outcome set.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeYes, OutcomeNo, OutcomeErrored:
		return true
	}
	return false
}

// ParseOutcome maps a raw string to an Outcome. Unknown strings are
// rejected so callers can decide whether to fold them into errored.
func ParseOutcome(s string) (Outcome, bool) {
	o := Outcome(s)
	return o, o.Valid()
}

// Contact is the opaque field map the platform sends for one contact in
// a notification batch.
type Contact map[string]string

// Field returns the first non-empty value among the given field names.
// Notification payloads are inconsistent about field-name casing, so
// lookups fall back through known spellings.
func (c Contact) Field(names ...string) string {
	for _, name := range names {
		if v, ok := c[name]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Record pairs a contact with its evaluated outcome. Order among records
// within a batch is significant and preserved end to end.
type Record struct {
	Contact Contact
	Outcome Outcome
}
