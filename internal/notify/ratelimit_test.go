package notify

import (
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_CapEnforced(t *testing.T) {
	l := NewRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !l.TryConsume("user001") {
			t.Fatalf("consume %d within cap should succeed", i+1)
		}
	}
	if l.TryConsume("user001") {
		t.Error("4th consume within the window should be denied")
	}

	allowed, denied := l.Stats()
	if allowed != 3 || denied != 1 {
		t.Errorf("expected 3 allowed / 1 denied, got %d / %d", allowed, denied)
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	l := NewRateLimiter(3, time.Hour)

	current := time.Now()
	l.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		if !l.TryConsume("user001") {
			t.Fatalf("consume %d should succeed", i+1)
		}
	}
	if l.TryConsume("user001") {
		t.Fatal("over-cap consume should be denied")
	}

	// Advance past the window; stale stamps are pruned before the check
	current = current.Add(time.Hour + time.Minute)
	if !l.TryConsume("user001") {
		t.Error("consume after the window passes should succeed again")
	}
}

func TestRateLimiter_DenialDoesNotMutate(t *testing.T) {
	l := NewRateLimiter(1, time.Hour)

	current := time.Now()
	l.now = func() time.Time { return current }

	if !l.TryConsume("user001") {
		t.Fatal("first consume should succeed")
	}

	// Repeated denials must not extend the lockout
	for i := 0; i < 5; i++ {
		current = current.Add(10 * time.Minute)
		if l.TryConsume("user001") {
			t.Fatalf("consume at +%d min should be denied", (i+1)*10)
		}
	}

	// 65 minutes after the single grant, the window has passed
	current = current.Add(15 * time.Minute)
	if !l.TryConsume("user001") {
		t.Error("denials should not have refreshed the window")
	}
}

func TestRateLimiter_UsersIndependent(t *testing.T) {
	l := NewRateLimiter(1, time.Hour)

	if !l.TryConsume("alice") {
		t.Fatal("alice's first consume should succeed")
	}
	if !l.TryConsume("bob") {
		t.Error("bob's limit is independent of alice's")
	}
	if l.TryConsume("alice") {
		t.Error("alice should be at cap")
	}
}

func TestRateLimiter_Remaining(t *testing.T) {
	l := NewRateLimiter(3, time.Hour)

	if got := l.Remaining("user001"); got != 3 {
		t.Errorf("expected 3 remaining, got %d", got)
	}
	l.TryConsume("user001")
	if got := l.Remaining("user001"); got != 2 {
		t.Errorf("expected 2 remaining, got %d", got)
	}
}

func TestRateLimiter_ConcurrentSameUser(t *testing.T) {
	l := NewRateLimiter(3, time.Hour)

	var wg sync.WaitGroup
	granted := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted <- l.TryConsume("user001")
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for ok := range granted {
		if ok {
			count++
		}
	}
	if count != 3 {
		t.Errorf("exactly 3 concurrent consumes should win, got %d", count)
	}
}
