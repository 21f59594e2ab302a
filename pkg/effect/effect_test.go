package effect

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestEffectNotifiesStartedAndDone(t *testing.T) {
	fx := New("double", func(_ context.Context, n int) (int, error) { return n * 2, nil })

	var started []int
	var done []int
	fx.OnStarted(func(n int) { started = append(started, n) })
	fx.OnDone(func(_ int, out int) { done = append(done, out) })
	fx.OnFail(func(int, error) { t.Fatalf("fail channel must not fire") })

	out, err := fx.Run(context.Background(), 21)
	if err != nil || out != 42 {
		t.Fatalf("Run = %d, %v", out, err)
	}
	if len(started) != 1 || started[0] != 21 {
		t.Fatalf("started = %v", started)
	}
	if len(done) != 1 || done[0] != 42 {
		t.Fatalf("done = %v", done)
	}
}

func TestEffectNotifiesFail(t *testing.T) {
	boom := errors.New("boom")
	fx := New("fail", func(context.Context, string) (string, error) { return "", boom })

	var failed error
	fx.OnFail(func(_ string, err error) { failed = err })
	fx.OnDone(func(string, string) { t.Fatalf("done channel must not fire") })

	if _, err := fx.Run(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("Run error = %v", err)
	}
	if !errors.Is(failed, boom) {
		t.Fatalf("fail subscriber got %v", failed)
	}
}

func TestEffectUnsubscribe(t *testing.T) {
	fx := New("noop", func(context.Context, int) (int, error) { return 0, nil })
	calls := 0
	stop := fx.OnStarted(func(int) { calls++ })

	_, _ = fx.Run(context.Background(), 1)
	stop()
	_, _ = fx.Run(context.Background(), 2)

	if calls != 1 {
		t.Fatalf("expected 1 call after unsubscribe, got %d", calls)
	}
}

func TestEffectInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	fx := New("block", func(context.Context, int) (int, error) {
		entered <- struct{}{}
		<-release
		return 0, nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = fx.Run(context.Background(), 1)
	}()

	<-entered
	if got := fx.InFlight(); got != 1 {
		t.Fatalf("InFlight = %d, want 1", got)
	}
	close(release)
	wg.Wait()
	if got := fx.InFlight(); got != 0 {
		t.Fatalf("InFlight after settle = %d", got)
	}
}

func TestAttachReadsSourceOnEveryCall(t *testing.T) {
	token := NewStore("a")
	fx := Attach("attached", token.Get, func(_ context.Context, tok string, in string) (string, error) {
		return tok + ":" + in, nil
	})

	first, _ := fx.Run(context.Background(), "x")
	token.Set("b")
	second, _ := fx.Run(context.Background(), "x")

	if first != "a:x" || second != "b:x" {
		t.Fatalf("Attach results = %q, %q", first, second)
	}
}

func TestStoreWatch(t *testing.T) {
	s := NewStore(0)
	var seen []int
	stop := s.Watch(func(v int) { seen = append(seen, v) })
	s.Set(1)
	s.Set(2)
	stop()
	s.Set(3)

	if s.Get() != 3 {
		t.Fatalf("Get = %d", s.Get())
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("seen = %v", seen)
	}
}
