package crawler

import "sync/atomic"

// Budget caps the number of pages a run emits.
//
// A worker reserves a slot before storing a page, commits it once the store
// accepted the page (newly inserted or already present) and releases it when
// the store failed. Reservations never exceed the maximum, so the committed
// count cannot either.
type Budget struct {
	max      int64
	reserved atomic.Int64
	emitted  atomic.Int64
}

// NewBudget creates a Budget for at most maxPages pages.
func NewBudget(maxPages int) *Budget {
	return &Budget{max: int64(maxPages)}
}

// Reserve claims one slot. It returns false when all slots are claimed.
func (b *Budget) Reserve() bool {
	for {
		current := b.reserved.Load()
		if current >= b.max {
			return false
		}
		if b.reserved.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Commit turns a reservation into an emitted page and returns the new
// emitted count.
func (b *Budget) Commit() int {
	return int(b.emitted.Add(1))
}

// Release gives back a reservation that did not produce a page.
func (b *Budget) Release() {
	b.reserved.Add(-1)
}

// Exhausted reports whether the maximum number of pages was emitted.
func (b *Budget) Exhausted() bool {
	return b.emitted.Load() >= b.max
}

// Full reports whether every slot is reserved or committed, so that no
// further page can be accepted unless a reservation is released.
func (b *Budget) Full() bool {
	return b.reserved.Load() >= b.max
}

// Max returns the page cap.
func (b *Budget) Max() int {
	return int(b.max)
}
