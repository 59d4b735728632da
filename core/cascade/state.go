package cascade

type Status string

// Level statuses
const (
	StatusEmpty   Status = "empty"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// SelectionState is what a form renders for one level: a dropdown, a spinner or an error.
type SelectionState struct {
	Level   string   `json:"level"`
	Value   string   `json:"value"`
	Options []Option `json:"options"`
	Loading bool     `json:"loading"`
	Error   bool     `json:"error"`
}

func (s SelectionState) Status() Status {
	switch {
	case s.Loading:
		return StatusLoading
	case s.Error:
		return StatusError
	case len(s.Options) > 0:
		return StatusReady
	default:
		return StatusEmpty
	}
}

// Selected returns the option matching the selected value.
func (s SelectionState) Selected() (Option, bool) {
	if s.Value == "" {
		return Option{}, false
	}
	return findOption(s.Options, s.Value)
}

func findOption(options []Option, id string) (Option, bool) {
	for _, opt := range options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

type levelState struct {
	SelectionState
	seq uint64 // latest request token issued for this level
}

// store holds the state of every level of a Graph.
// It is not safe for concurrent use; the Engine serializes access.
type store struct {
	levels []levelState
}

func newStore(g *Graph) *store {
	s := &store{levels: make([]levelState, g.Len())}
	for i, lvl := range g.levels {
		s.levels[i].Level = lvl.Key
	}
	return s
}

// setValue sets the value of level i and clears every level below it.
func (s *store) setValue(i int, value string) {
	s.levels[i].Value = value
	s.clearBelow(i)
}

func (s *store) setOptions(i int, options []Option) {
	s.levels[i].Options = cloneOptions(options)
}

func (s *store) setLoading(i int, loading bool) {
	s.levels[i].Loading = loading
}

func (s *store) setError(i int, failed bool) {
	s.levels[i].Error = failed
}

// clearBelow empties every level below i and invalidates their in-flight requests.
func (s *store) clearBelow(i int) {
	for j := i + 1; j < len(s.levels); j++ {
		s.clear(j)
	}
}

func (s *store) clear(i int) {
	st := &s.levels[i]
	st.Value = ""
	st.Options = nil
	st.Loading = false
	st.Error = false
	st.seq++
}

// issue returns a new request token for level i; any earlier token becomes stale.
func (s *store) issue(i int) uint64 {
	s.levels[i].seq++
	return s.levels[i].seq
}

func (s *store) isLatest(i int, token uint64) bool {
	return s.levels[i].seq == token
}

func (s *store) hasOption(i int, id string) bool {
	_, ok := findOption(s.levels[i].Options, id)
	return ok
}

// snapshot returns a copy of level i's state, safe to hand out.
func (s *store) snapshot(i int) SelectionState {
	st := s.levels[i].SelectionState
	st.Options = cloneOptions(st.Options)
	if st.Options == nil {
		st.Options = []Option{}
	}
	return st
}

func cloneOptions(options []Option) []Option {
	if options == nil {
		return nil
	}
	out := make([]Option, len(options))
	for i, opt := range options {
		out[i] = opt
		if opt.Attrs != nil {
			out[i].Attrs = make(map[string]string, len(opt.Attrs))
			for k, v := range opt.Attrs {
				out[i].Attrs[k] = v
			}
		}
	}
	return out
}
