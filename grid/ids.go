package grid

// IDAllocator hands out unique positive entity ids, starting at 1. The zero
// value is ready to use. It is owned by the caller; there is no shared
// package-level counter.
type IDAllocator struct {
	last EntityID
}

// Next returns a fresh id
func (a *IDAllocator) Next() EntityID {
	a.last++
	return a.last
}

// Last returns the most recently issued id, or 0 if none
func (a *IDAllocator) Last() EntityID { return a.last }

// Reserve makes sure ids up to and including id are never issued. It is
// used after restoring a grid so new ids do not collide with restored ones.
func (a *IDAllocator) Reserve(id EntityID) {
	if id > a.last {
		a.last = id
	}
}
