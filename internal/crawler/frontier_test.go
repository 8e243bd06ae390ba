package crawler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFrontier(t *testing.T) {
	t.Parallel()

	t.Run("FIFO order", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		f.Offer("a", 1)
		f.Offer("b", 0)
		f.Offer("c", 0)

		for _, want := range []string{"a", "b", "c"} {
			unit, ok := f.Take()
			if !ok {
				t.Fatalf("expected unit %s", want)
			}
			if unit.URL != want {
				t.Errorf("expected %s, got %s", want, unit.URL)
			}
			f.Done()
		}

		if _, ok := f.Take(); ok {
			t.Error("expected drained frontier")
		}
	})

	t.Run("duplicate offers are rejected", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		if !f.Offer("a", 2) {
			t.Error("first offer should succeed")
		}
		if f.Offer("a", 5) {
			t.Error("second offer should be rejected")
		}

		unit, _ := f.Take()
		if unit.Depth != 2 {
			t.Errorf("first discovery depth should win, got %d", unit.Depth)
		}
		if f.Seen() != 1 {
			t.Errorf("expected 1 seen URL, got %d", f.Seen())
		}
	})

	t.Run("concurrent offers enqueue exactly once", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		var accepted atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if f.Offer("http://example.com/same", 1) {
					accepted.Add(1)
				}
			}()
		}
		wg.Wait()

		if accepted.Load() != 1 {
			t.Errorf("expected exactly 1 accepted offer, got %d", accepted.Load())
		}
		if f.Len() != 1 {
			t.Errorf("expected 1 queued unit, got %d", f.Len())
		}
	})

	t.Run("take waits for in-flight work", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		f.Offer("seed", 1)
		if _, ok := f.Take(); !ok {
			t.Fatal("expected seed")
		}

		got := make(chan string, 1)
		go func() {
			unit, ok := f.Take()
			if ok {
				got <- unit.URL
			} else {
				got <- ""
			}
		}()

		select {
		case <-got:
			t.Fatal("take returned while work was in flight")
		case <-time.After(50 * time.Millisecond):
		}

		f.Offer("child", 0)
		f.Done()

		select {
		case url := <-got:
			if url != "child" {
				t.Errorf("expected child, got %q", url)
			}
		case <-time.After(time.Second):
			t.Fatal("take did not wake up")
		}
	})

	t.Run("last done releases all waiters", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		f.Offer("seed", 0)
		f.Take()

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := f.Take(); ok {
					t.Error("expected termination")
				}
			}()
		}

		time.Sleep(20 * time.Millisecond)
		f.Done()

		waitOrFail(t, &wg, time.Second)
	})

	t.Run("close wakes waiters", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		f.Offer("seed", 1)
		f.Take()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := f.Take(); ok {
				t.Error("expected closed frontier")
			}
		}()

		time.Sleep(20 * time.Millisecond)
		f.Close()
		f.Close()

		waitOrFail(t, &wg, time.Second)

		if f.Offer("late", 0) {
			t.Error("offer after close should be rejected")
		}
		f.Done()
	})

	t.Run("close discards queued units", func(t *testing.T) {
		t.Parallel()

		f := NewFrontier()
		f.Offer("a", 0)
		f.Offer("b", 0)
		f.Close()

		if f.Len() != 0 {
			t.Errorf("expected empty queue after close, got %d", f.Len())
		}
		if _, ok := f.Take(); ok {
			t.Error("expected no unit after close")
		}
		if f.Offer("late", 0) {
			t.Error("offer after close should be rejected")
		}
		if f.Seen() != 2 {
			t.Errorf("expected 2 seen URLs, got %d", f.Seen())
		}
	})
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for goroutines")
	}
}

func TestBudget(t *testing.T) {
	t.Parallel()

	t.Run("reservations never exceed max", func(t *testing.T) {
		t.Parallel()

		b := NewBudget(10)
		var granted atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if b.Reserve() {
					granted.Add(1)
					b.Commit()
				}
			}()
		}
		wg.Wait()

		if granted.Load() != 10 {
			t.Errorf("expected 10 reservations, got %d", granted.Load())
		}
		if !b.Exhausted() || !b.Full() {
			t.Error("expected exhausted and full budget")
		}
	})

	t.Run("outstanding reservations fill the budget", func(t *testing.T) {
		t.Parallel()

		b := NewBudget(2)
		if !b.Reserve() || !b.Reserve() {
			t.Fatal("expected two reservations")
		}
		if b.Exhausted() {
			t.Error("nothing was committed yet")
		}
		if !b.Full() {
			t.Error("expected reserved slots to fill the budget")
		}
		b.Release()
		if b.Full() {
			t.Error("released slot should be available again")
		}
	})

	t.Run("release frees a slot", func(t *testing.T) {
		t.Parallel()

		b := NewBudget(1)
		if !b.Reserve() {
			t.Fatal("expected reservation")
		}
		if b.Reserve() {
			t.Fatal("expected second reservation to fail")
		}
		b.Release()
		if b.Exhausted() {
			t.Error("released budget should not be exhausted")
		}
		if !b.Reserve() {
			t.Fatal("expected reservation after release")
		}
		if got := b.Commit(); got != 1 {
			t.Errorf("expected emitted 1, got %d", got)
		}
		if !b.Exhausted() {
			t.Error("expected exhausted budget")
		}
		if b.Max() != 1 {
			t.Errorf("expected max 1, got %d", b.Max())
		}
	})
}
