package directive

// Section is an ordered, append-only sequence of directives sharing one
// output region. It implements expr.SizedSection so a Label can look up
// the cumulative size of the directives preceding it without this
// package importing anything from expr beyond the Expression type.
type Section struct {
	Name       string
	directives []Directive
	sizeCache  []int64 // sizeCache[i] memoises the cumulative size through directive i-1
}

func NewSection(name string) *Section {
	return &Section{Name: name}
}

// Append adds d to the section and returns its index, the value a Label
// declared "here" should record.
func (s *Section) Append(d Directive) int {
	s.directives = append(s.directives, d)
	return len(s.directives) - 1
}

func (s *Section) DirectiveCount() int { return len(s.directives) }

func (s *Section) Directives() []Directive { return s.directives }

// SizeUpTo returns the sum of Size() over the first n directives,
// memoising prefix sums as they're computed. Each Size() call may itself
// trigger recursive label resolution.
func (s *Section) SizeUpTo(n int) (int64, error) {
	if n < 0 || n > len(s.directives) {
		n = len(s.directives)
	}
	if s.sizeCache == nil {
		s.sizeCache = make([]int64, 1, len(s.directives)+1)
	}
	for len(s.sizeCache) <= n {
		idx := len(s.sizeCache) - 1
		sz, err := s.directives[idx].Size()
		if err != nil {
			return 0, err
		}
		s.sizeCache = append(s.sizeCache, s.sizeCache[idx]+sz)
	}
	return s.sizeCache[n], nil
}

// TotalSize is SizeUpTo for the whole section.
func (s *Section) TotalSize() (int64, error) {
	return s.SizeUpTo(len(s.directives))
}
