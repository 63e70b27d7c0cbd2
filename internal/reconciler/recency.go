package reconciler

// recencySet is a bounded FIFO set of transaction hashes. When full,
// adding a new member evicts the oldest. It is owned by the poll loop and
// is not safe for concurrent use.
type recencySet struct {
	capacity int
	order    []string
	next     int
	members  map[string]struct{}
}

func newRecencySet(capacity int) *recencySet {
	if capacity < 1 {
		capacity = 1
	}
	return &recencySet{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		members:  make(map[string]struct{}, capacity),
	}
}

func (s *recencySet) Contains(id string) bool {
	_, ok := s.members[id]
	return ok
}

func (s *recencySet) Add(id string) {
	if s.Contains(id) {
		return
	}
	if len(s.order) < s.capacity {
		s.order = append(s.order, id)
	} else {
		delete(s.members, s.order[s.next])
		s.order[s.next] = id
		s.next = (s.next + 1) % s.capacity
	}
	s.members[id] = struct{}{}
}

func (s *recencySet) Len() int {
	return len(s.members)
}
