package ingest

// progressMin is the result count a run must exceed before progress is
// reported at all.
const progressMin = 1000

// progress decides when a run reports coarse progress: ten steps of
// floor(total/10) results each, computed once per run.
type progress struct {
	total     int
	interval  int
	threshold int
}

func newProgress(total int) progress {
	p := progress{total: total}
	if total > progressMin {
		p.interval = total / 10
		p.threshold = p.interval
	}
	return p
}

// step is called after each processed result and reports whether a
// notification is due.
func (p *progress) step(processed int) bool {
	if p.interval == 0 || processed < p.threshold {
		return false
	}
	p.threshold += p.interval
	return true
}
