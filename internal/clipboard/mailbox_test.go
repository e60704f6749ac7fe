package clipboard

import (
	"fmt"
	"sync"
	"testing"
)

func TestCopyThenCheckCopy(t *testing.T) {
	m := NewMailbox(DefaultLimit)
	m.Copy("hello")
	got, ok := m.CheckCopy()
	if !ok || got != "hello" {
		t.Fatalf("CheckCopy = %q,%v; want hello,true", got, ok)
	}
	if got, ok := m.CheckCopy(); ok {
		t.Fatalf("second CheckCopy = %q; want none", got)
	}
}

func TestPasteRequestsConsumedOnce(t *testing.T) {
	m := NewMailbox(DefaultLimit)
	m.RequestPaste()
	m.RequestPaste()
	for i := 0; i < 2; i++ {
		if !m.CheckPaste() {
			t.Fatalf("CheckPaste #%d = false; want true", i+1)
		}
	}
	if m.CheckPaste() {
		t.Fatalf("third CheckPaste = true; want false")
	}
	if m.CheckPaste() {
		t.Fatalf("counter went negative or reappeared")
	}
	if n := m.Pending(); n != 0 {
		t.Fatalf("Pending = %d; want 0", n)
	}
}

func TestQueuesAreFIFO(t *testing.T) {
	m := NewMailbox(0)
	const n = 1000
	for i := 0; i < n; i++ {
		m.Copy(fmt.Sprint(i))
		m.PushPaste(fmt.Sprint(i))
	}
	for i := 0; i < n; i++ {
		if got, ok := m.CheckCopy(); !ok || got != fmt.Sprint(i) {
			t.Fatalf("CheckCopy #%d = %q,%v", i, got, ok)
		}
		if got, ok := m.GetPaste(); !ok || got != fmt.Sprint(i) {
			t.Fatalf("GetPaste #%d = %q,%v", i, got, ok)
		}
	}
	if _, ok := m.CheckCopy(); ok {
		t.Fatalf("copy queue not empty")
	}
	if _, ok := m.GetPaste(); ok {
		t.Fatalf("paste queue not empty")
	}
}

func TestInterleavedPushPopKeepsOrder(t *testing.T) {
	m := NewMailbox(0)
	next, want := 0, 0
	for round := 0; round < 200; round++ {
		for i := 0; i < 3; i++ {
			m.Copy(fmt.Sprint(next))
			next++
		}
		for i := 0; i < 2; i++ {
			got, _ := m.CheckCopy()
			if got != fmt.Sprint(want) {
				t.Fatalf("got %q want %d", got, want)
			}
			want++
		}
	}
	for {
		got, ok := m.CheckCopy()
		if !ok {
			break
		}
		if got != fmt.Sprint(want) {
			t.Fatalf("drain got %q want %d", got, want)
		}
		want++
	}
	if want != next {
		t.Fatalf("drained %d of %d", want, next)
	}
}

func TestLimitDropsOldest(t *testing.T) {
	m := NewMailbox(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		m.Copy(s)
	}
	if d := m.Dropped(); d != 2 {
		t.Fatalf("Dropped = %d; want 2", d)
	}
	for _, want := range []string{"c", "d", "e"} {
		if got, _ := m.CheckCopy(); got != want {
			t.Fatalf("CheckCopy = %q; want %q", got, want)
		}
	}
}

func TestConcurrentCopyNeitherLosesNorDuplicates(t *testing.T) {
	m := NewMailbox(0)
	const producers, per = 8, 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				m.Copy(fmt.Sprintf("%d/%d", p, i))
			}
		}(p)
	}

	seen := make(map[string]bool)
	last := make(map[int]int)
	for p := 0; p < producers; p++ {
		last[p] = -1
	}
	var mu sync.Mutex
	record := func(s string) {
		var p, i int
		fmt.Sscanf(s, "%d/%d", &p, &i)
		mu.Lock()
		defer mu.Unlock()
		if seen[s] {
			t.Errorf("duplicate %q", s)
		}
		seen[s] = true
		if i <= last[p] {
			t.Errorf("producer %d reordered: %d after %d", p, i, last[p])
		}
		last[p] = i
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	// single consumer while producers run, then drain
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		if s, ok := m.CheckCopy(); ok {
			record(s)
		}
	}
	for {
		s, ok := m.CheckCopy()
		if !ok {
			break
		}
		record(s)
	}
	if len(seen) != producers*per {
		t.Fatalf("received %d items; want %d", len(seen), producers*per)
	}
}

func TestConcurrentPasteRequests(t *testing.T) {
	m := NewMailbox(DefaultLimit)
	const n = 1000
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RequestPaste()
		}()
	}
	wg.Wait()
	count := 0
	for m.CheckPaste() {
		count++
	}
	if count != n {
		t.Fatalf("CheckPaste true %d times; want %d", count, n)
	}
}
