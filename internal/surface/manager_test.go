package surface

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"termhost/internal/gfx"
	"termhost/internal/testutil"
)

func TestCreateDestroyRepeated(t *testing.T) {
	f := newFixture(t, nil)
	for i := 0; i < 1000; i++ {
		if err := f.m.CreateSurface(1, 100, f.handle); err != nil {
			t.Fatalf("iteration %d: CreateSurface error: %v", i, err)
		}
		st, ok := f.m.Get(100)
		if !ok {
			t.Fatalf("iteration %d: surface not registered", i)
		}
		f.m.DestroySurface(100)
		if f.m.Len() != 0 {
			t.Fatalf("iteration %d: registry not empty", i)
		}
		select {
		case <-st.Done():
		default:
			t.Fatalf("iteration %d: render loop still running after destroy", i)
		}
		if st.Phase() != PhaseExited {
			t.Fatalf("iteration %d: phase = %s", i, st.Phase())
		}
	}
	if n := f.table.LiveNatives(); n != 0 {
		t.Fatalf("LiveNatives = %d; want 0", n)
	}
	if n := f.shared.Inits(); n != 1 {
		t.Fatalf("display initialised %d times", n)
	}
}

func TestDestroyUnknownIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	f.m.DestroySurface(999)
	if f.m.Len() != 0 || f.shared.Initialized() {
		t.Fatalf("destroying an unknown id had side effects")
	}
}

func TestDestroyTwice(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.m.CreateSurface(1, 7, f.handle); err != nil {
		t.Fatalf("CreateSurface error: %v", err)
	}
	f.m.DestroySurface(7)
	calls := len(f.driver.teardownCalls())
	f.m.DestroySurface(7)
	if got := len(f.driver.teardownCalls()); got != calls {
		t.Fatalf("second destroy released resources again")
	}
}

func TestDuplicateCreateKeepsFirst(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.m.CreateSurface(1, 100, f.handle); err != nil {
		t.Fatalf("CreateSurface error: %v", err)
	}
	first, _ := f.m.Get(100)

	err := f.m.CreateSurface(1, 100, f.handle)
	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.SurfaceID != 100 || !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second CreateSurface = %v; want DuplicateError for 100", err)
	}
	if st, _ := f.m.Get(100); st != first {
		t.Fatalf("registry entry replaced")
	}
	if f.m.Len() != 1 {
		t.Fatalf("Len = %d; want 1", f.m.Len())
	}

	before := first.Stats().Frames
	testutil.Eventually(t, 2*time.Second, "first surface stopped rendering", func() bool {
		return first.Stats().Frames > before+2
	})
	if first.Phase() != PhaseRunning {
		t.Fatalf("phase = %s; want running", first.Phase())
	}
}

func TestConcurrentCreateSameID(t *testing.T) {
	f := newFixture(t, nil)
	const n = 16
	var wg sync.WaitGroup
	var ok, dup atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.m.CreateSurface(1, 5, f.handle)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrDuplicate):
				dup.Add(1)
			default:
				t.Errorf("CreateSurface error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok.Load() != 1 || dup.Load() != n-1 {
		t.Fatalf("created %d, duplicates %d", ok.Load(), dup.Load())
	}
	if f.shared.Inits() != 1 {
		t.Fatalf("display initialised %d times", f.shared.Inits())
	}
	f.m.DestroySurface(5)
	if n := f.table.LiveNatives(); n != 0 {
		t.Fatalf("LiveNatives = %d; want 0", n)
	}
}

func TestConcurrentCreateDestroyDistinctIDs(t *testing.T) {
	f := newFixture(t, nil)
	var wg sync.WaitGroup
	for g := int64(0); g < 8; g++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := f.m.CreateSurface(1, id, f.handle); err != nil {
					t.Errorf("CreateSurface(%d) error: %v", id, err)
					return
				}
				f.m.DestroySurface(id)
			}
		}(g)
	}
	wg.Wait()
	if f.m.Len() != 0 || f.table.LiveNatives() != 0 {
		t.Fatalf("leftovers: %d surfaces, %d windows", f.m.Len(), f.table.LiveNatives())
	}
}

func TestTeardownOrder(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.m.CreateSurface(1, 1, f.handle); err != nil {
		t.Fatalf("CreateSurface error: %v", err)
	}
	st, _ := f.m.Get(1)
	f.m.DestroySurface(1)
	// the render goroutine releases its context on exit, so release-current
	// marks the join
	calls := f.driver.allCalls()
	var tail []string
	for i, c := range calls {
		if c == "release-current" {
			tail = calls[i:]
		}
	}
	want := []string{"release-current", "destroy-surface", "destroy-context", "destroy-window"}
	if !reflect.DeepEqual(tail, want) {
		t.Fatalf("teardown = %v; want %v", calls, want)
	}
	if !st.win.Destroyed() {
		t.Fatalf("window not destroyed")
	}
}

func TestCreateFailuresUnwind(t *testing.T) {
	t.Run("unknown window", func(t *testing.T) {
		f := newFixture(t, nil)
		err := f.m.CreateSurface(1, 1, f.handle+100)
		if !errors.Is(err, ErrWindow) {
			t.Fatalf("err = %v; want ErrWindow", err)
		}
		if f.m.Len() != 0 {
			t.Fatalf("failed create registered a surface")
		}
	})
	t.Run("surface", func(t *testing.T) {
		f := newFixture(t, nil)
		f.driver.failCreateSurface = errInjected
		if err := f.m.CreateSurface(1, 1, f.handle); !errors.Is(err, errInjected) {
			t.Fatalf("err = %v", err)
		}
		if f.table.LiveNatives() != 0 {
			t.Fatalf("window leaked")
		}
	})
	t.Run("context", func(t *testing.T) {
		f := newFixture(t, nil)
		f.driver.failCreateContext = errInjected
		if err := f.m.CreateSurface(1, 1, f.handle); !errors.Is(err, errInjected) {
			t.Fatalf("err = %v", err)
		}
		if got := f.driver.teardownCalls(); !reflect.DeepEqual(got, []string{"destroy-surface", "destroy-window"}) {
			t.Fatalf("teardown = %v", got)
		}
		if f.table.LiveNatives() != 0 {
			t.Fatalf("window leaked")
		}
		// the id is free again
		f.driver.failCreateContext = nil
		if err := f.m.CreateSurface(1, 1, f.handle); err != nil {
			t.Fatalf("retry error: %v", err)
		}
	})
	t.Run("display", func(t *testing.T) {
		shared := gfx.NewShared(gfx.NewSoft(gfx.SoftOptions{OpenErr: errInjected}))
		f := newFixture(t, func(o *Options) { o.Shared = shared })
		if err := f.m.CreateSurface(1, 1, f.handle); !errors.Is(err, gfx.ErrNoDisplay) {
			t.Fatalf("err = %v; want ErrNoDisplay", err)
		}
		if f.table.LiveNatives() != 0 || f.m.Len() != 0 {
			t.Fatalf("setup failure left state behind")
		}
	})
}

func TestResizeSurface(t *testing.T) {
	f := newFixture(t, nil)
	for _, c := range [][2]int{{0, 10}, {10, 0}, {-1, 5}} {
		if err := f.m.ResizeSurface(1, c[0], c[1]); !errors.Is(err, ErrInvalidSize) {
			t.Fatalf("ResizeSurface(%v) = %v; want ErrInvalidSize", c, err)
		}
	}
	if len(f.engine.calls) != 0 {
		t.Fatalf("invalid sizes reached the engine: %v", f.engine.calls)
	}
	if err := f.m.ResizeSurface(3, 640, 480); err != nil {
		t.Fatalf("ResizeSurface error: %v", err)
	}
	if want := []resizeCall{{3, 640, 480}}; !reflect.DeepEqual(f.engine.calls, want) {
		t.Fatalf("engine calls = %v", f.engine.calls)
	}
	f.m.ResizeWidth(100)
}

func TestCloseDestroysAll(t *testing.T) {
	f := newFixture(t, nil)
	for id := int64(1); id <= 3; id++ {
		if err := f.m.CreateSurface(id, id, f.handle); err != nil {
			t.Fatalf("CreateSurface error: %v", err)
		}
	}
	if ids := f.m.IDs(); !reflect.DeepEqual(ids, []int64{1, 2, 3}) {
		t.Fatalf("IDs = %v", ids)
	}
	f.m.Close()
	if f.m.Len() != 0 || f.table.LiveNatives() != 0 {
		t.Fatalf("Close left surfaces behind")
	}
	if err := f.m.CreateSurface(1, 9, f.handle); !errors.Is(err, ErrClosed) {
		t.Fatalf("CreateSurface after Close = %v; want ErrClosed", err)
	}
}
