package driver

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/scrubreel/internal/mapping"
)

func TestRegistry(t *testing.T) {
	name := "test-registry"
	f := func(opts Options) (Driver, error) { return &Timeline{FPS: 1, Duration: time.Second}, nil }

	if err := Register(name, f); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := Register(name, f); !errors.Is(err, ErrDuplicateDriver) {
		t.Errorf("Expected ErrDuplicateDriver, got %v", err)
	}
	if _, err := New(name, Options{}); err != nil {
		t.Errorf("New failed: %v", err)
	}
	if _, err := New("missing", Options{}); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("Expected ErrUnknownDriver, got %v", err)
	}

	found := false
	for _, n := range Names() {
		if n == name {
			found = true
		}
	}
	if !found {
		t.Errorf("Names() does not list %s", name)
	}
}

func collect(t *testing.T, d Driver) []Event {
	t.Helper()
	var events []Event
	if err := d.Run(context.Background(), func(e Event) { events = append(events, e) }); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return events
}

func TestTimelineLinearWithoutLag(t *testing.T) {
	d, err := NewTimeline(Options{Duration: time.Second, FPS: 10})
	if err != nil {
		t.Fatalf("NewTimeline failed: %v", err)
	}
	events := collect(t, d)

	if len(events) != 11 {
		t.Fatalf("Expected 11 events, got %d", len(events))
	}
	for i, e := range events {
		want := float64(i) / 10
		if e.Kind != KindProgress || math.Abs(e.Progress-want) > 1e-9 {
			t.Errorf("Event %d: got %+v, want progress %.2f", i, e, want)
		}
	}
}

func TestTimelineScrubLagIsMonotonicAndFinishes(t *testing.T) {
	d, err := NewTimeline(Options{Duration: 2 * time.Second, FPS: 30, Ease: "in-out-quad", ScrubLag: 0.2})
	if err != nil {
		t.Fatalf("NewTimeline failed: %v", err)
	}
	events := collect(t, d)

	if len(events) <= 61 {
		t.Errorf("Expected trailing catch-up events, got %d", len(events))
	}
	prev := -1.0
	for i, e := range events {
		if e.Progress < prev {
			t.Fatalf("Progress decreases at %d: %f < %f", i, e.Progress, prev)
		}
		if e.Progress < 0 || e.Progress > 1 {
			t.Fatalf("Progress out of range at %d: %f", i, e.Progress)
		}
		prev = e.Progress
	}
	if last := events[len(events)-1].Progress; last != 1 {
		t.Errorf("Expected final progress 1, got %f", last)
	}
}

func TestTimelineWindow(t *testing.T) {
	d, _ := NewTimeline(Options{
		Duration: time.Second,
		FPS:      63,
		Window:   mapping.Window{Start: 13, Duration: 50, Total: 63},
	})
	events := collect(t, d)

	// the sequence stays on its first frame until the window opens
	for i := 0; i <= 13; i++ {
		if events[i].Progress > 1e-9 {
			t.Errorf("Event %d: expected 0 before window, got %f", i, events[i].Progress)
		}
	}
	if math.Abs(events[38].Progress-0.5) > 1e-9 {
		t.Errorf("Expected 0.5 in the middle of the window, got %f", events[38].Progress)
	}
}

func TestTimelineValidation(t *testing.T) {
	if _, err := NewTimeline(Options{FPS: 30}); err == nil {
		t.Error("Expected error for zero duration")
	}
	if _, err := NewTimeline(Options{Duration: time.Second}); err == nil {
		t.Error("Expected error for zero fps")
	}
	if _, err := NewTimeline(Options{Duration: time.Second, FPS: 1, Ease: "bounce-wild"}); err == nil {
		t.Error("Expected error for unknown ease")
	}
}

func TestTimelineRunRejectsZeroFPS(t *testing.T) {
	d := &Timeline{Duration: time.Second, Realtime: true}
	emitted := 0
	if err := d.Run(context.Background(), func(Event) { emitted++ }); err == nil {
		t.Error("Expected error for zero fps")
	}
	if emitted != 0 {
		t.Errorf("Expected no events, got %d", emitted)
	}
}

func TestTimelineStopsOnCancel(t *testing.T) {
	d, _ := NewTimeline(Options{Duration: time.Hour, FPS: 30, Realtime: true})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Run(ctx, func(Event) {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
}

type fakeSubscriber struct {
	mu           sync.Mutex
	handlers     map[string]func([]byte)
	unsubscribed []string
	disconnected bool
	ready        chan struct{}
}

func (f *fakeSubscriber) Connect() error { return nil }

func (f *fakeSubscriber) Subscribe(topic string, fn func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = fn
	if len(f.handlers) == 2 {
		close(f.ready)
	}
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, topics...)
}

func (f *fakeSubscriber) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeSubscriber) publish(topic, payload string) {
	f.mu.Lock()
	fn := f.handlers[topic]
	f.mu.Unlock()
	fn([]byte(payload))
}

func TestMQTTDeliversEventsAndCleansUp(t *testing.T) {
	fake := &fakeSubscriber{handlers: map[string]func([]byte){}, ready: make(chan struct{})}
	d := &MQTT{Topic: "site/deo", dial: func() subscriber { return fake }}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 8)
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, func(e Event) { events <- e }) }()

	<-fake.ready
	fake.publish("site/deo/progress", "0.25")
	fake.publish("site/deo/progress", "oops")
	fake.publish("site/deo/resize", "1280x720")
	fake.publish("site/deo/progress", "7")

	want := []Event{
		{Kind: KindProgress, Progress: 0.25},
		{Kind: KindResize, Width: 1280, Height: 720},
		{Kind: KindProgress, Progress: 1},
	}
	for i, w := range want {
		if got := <-events; got != w {
			t.Errorf("Event %d: got %+v, want %+v", i, got, w)
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	if len(fake.unsubscribed) != 2 || !fake.disconnected {
		t.Errorf("Expected both topics unsubscribed and disconnect, got %v / %v", fake.unsubscribed, fake.disconnected)
	}
}

func TestNewMQTTRequiresBroker(t *testing.T) {
	if _, err := NewMQTT(Options{}); err == nil {
		t.Error("Expected error without broker")
	}
}

func TestParseSize(t *testing.T) {
	if w, h, err := ParseSize([]byte(" 390X844 ")); err != nil || w != 390 || h != 844 {
		t.Errorf("ParseSize = %d, %d, %v", w, h, err)
	}
	for _, bad := range []string{"", "100", "0x10", "ax b"} {
		if _, _, err := ParseSize([]byte(bad)); err == nil {
			t.Errorf("ParseSize(%q) expected error", bad)
		}
	}
}
