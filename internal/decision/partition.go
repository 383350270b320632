package decision

// Partition groups a batch of records into one contact list per outcome.
// It is pure and stable: relative input order is preserved within each
// group, every record lands in exactly one group, and nothing is dropped
// or duplicated. All three outcome keys are always present, empty groups
// included. A record carrying an out-of-set outcome is folded into
// errored rather than lost.
func Partition(records []Record) map[Outcome][]Contact {
	parts := map[Outcome][]Contact{
		OutcomeYes:     {},
		OutcomeNo:      {},
		OutcomeErrored: {},
	}
	for _, rec := range records {
		outcome := rec.Outcome
		if !outcome.Valid() {
			outcome = OutcomeErrored
		}
		parts[outcome] = append(parts[outcome], rec.Contact)
	}
	return parts
}
