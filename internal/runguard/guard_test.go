package runguard_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"dubshorts/internal/runguard"
)

func TestConcurrentTryAcquireHasSingleWinner(t *testing.T) {
	guard := runguard.New()

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if guard.TryAcquire() {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
	if guard.TryAcquire() {
		t.Fatal("expected third acquire to be denied while held")
	}
	guard.Release()
	if !guard.TryAcquire() {
		t.Fatal("expected acquire to succeed after release")
	}
}

func TestRunReleasesOnError(t *testing.T) {
	guard := runguard.New()
	boom := errors.New("boom")

	ran, err := guard.Run(func() error { return boom })
	if !ran || !errors.Is(err, boom) {
		t.Fatalf("expected ran with boom, got ran=%v err=%v", ran, err)
	}
	if guard.Running() {
		t.Fatal("expected guard released after error")
	}
}

func TestRunReleasesOnPanic(t *testing.T) {
	guard := runguard.New()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_, _ = guard.Run(func() error { panic("stage crashed") })
	}()

	if guard.Running() {
		t.Fatal("expected guard released after panic")
	}
}

func TestRunDeniedWhileHeld(t *testing.T) {
	guard := runguard.New()
	if !guard.TryAcquire() {
		t.Fatal("expected initial acquire")
	}
	called := false
	ran, err := guard.Run(func() error {
		called = true
		return nil
	})
	if ran || err != nil || called {
		t.Fatalf("expected denied no-op, got ran=%v err=%v called=%v", ran, err, called)
	}
	if !guard.Running() {
		t.Fatal("denied run must not clear the holder's flag")
	}
}
