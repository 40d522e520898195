package bulk

// Result summarizes one phase of a run.
type Result struct {
	Phase       Phase
	Requested   int
	Succeeded   int
	Failed      []ItemFailure
	Submissions int // bulk jobs submitted, or single calls issued
	Pending     int // items left unconfirmed when the run stopped early
	Cancelled   bool
}

// FailedIDs returns the ids of permanently failed items.
func (r Result) FailedIDs() []string {
	ids := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.ID
	}
	return ids
}

// Complete reports whether every requested item succeeded.
func (r Result) Complete() bool {
	return !r.Cancelled && r.Succeeded == r.Requested && len(r.Failed) == 0
}
