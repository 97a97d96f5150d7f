package event

import (
	"testing"
	"time"
)

func TestEntryPointName(t *testing.T) {
	c := NewConfig()
	if c.EventLoopName() != "" {
		t.Error("unset entry point should be empty")
	}
	c.SetEventLoop("main")
	if c.EventLoopName() != "main" {
		t.Error("entry point not recorded")
	}
}

func TestSubscriptionsOrderedWithDuplicates(t *testing.T) {
	c := NewConfig()
	if i := c.Subscribe(CategoryTimer); i != 0 {
		t.Errorf("expected index 0, got %d", i)
	}
	if i := c.Subscribe(CategoryResize); i != 1 {
		t.Errorf("expected index 1, got %d", i)
	}
	if i := c.Subscribe(CategoryTimer); i != 2 {
		t.Errorf("duplicates are allowed; expected index 2, got %d", i)
	}

	subs := c.Subscriptions()
	want := []Category{CategoryTimer, CategoryResize, CategoryTimer}
	if len(subs) != len(want) {
		t.Fatalf("expected %d subscriptions, got %d", len(want), len(subs))
	}
	for i := range want {
		if subs[i] != want[i] {
			t.Errorf("subscription %d: expected %d, got %d", i, want[i], subs[i])
		}
	}
}

func TestTickDelayDefault(t *testing.T) {
	c := NewConfig()
	if c.TickDelay() != DefaultTickDelay {
		t.Errorf("expected default %v, got %v", DefaultTickDelay, c.TickDelay())
	}
	c.SetTickDelay(100 * time.Millisecond)
	if c.TickDelay() != 100*time.Millisecond {
		t.Error("explicit delay not applied")
	}
	c.SetTickDelay(0)
	if c.TickDelay() != 0 {
		t.Error("an explicit zero delay is not the same as unset")
	}
}
