package engine

// Summary tallies the outcome of a processing run.
type Summary struct {
	Records  int            `json:"records"`
	Applied  int            `json:"applied"`
	Rejected int            `json:"rejected"`
	ByReason map[string]int `json:"by_reason"`
}

func newSummary() Summary {
	return Summary{ByReason: make(map[string]int)}
}

func (s *Summary) applied() {
	s.Records++
	s.Applied++
}

func (s *Summary) rejected(reason string) {
	s.Records++
	s.Rejected++
	s.ByReason[reason]++
}

// Merge adds other's counts into s.
func (s *Summary) Merge(other Summary) {
	if s.ByReason == nil {
		s.ByReason = make(map[string]int)
	}
	s.Records += other.Records
	s.Applied += other.Applied
	s.Rejected += other.Rejected
	for reason, n := range other.ByReason {
		s.ByReason[reason] += n
	}
}
