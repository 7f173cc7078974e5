package mailqueue

import "testing"

func TestProgressBus_SubscribeAndUnsubscribe(t *testing.T) {
	b := NewProgressBus()

	var got []ProgressSnapshot
	unsub := b.Subscribe(func(s ProgressSnapshot) { got = append(got, s) })

	b.Publish(ProgressSnapshot{Status: ProgressSending, CurrentEmail: "a@x.com"})
	if len(got) != 1 || got[0].CurrentEmail != "a@x.com" {
		t.Fatalf("want one snapshot for a@x.com, got %v", got)
	}

	unsub()
	b.Publish(ProgressSnapshot{Status: ProgressSuccess})
	if len(got) != 1 {
		t.Fatalf("unsubscribed callback still invoked, got %d snapshots", len(got))
	}
	if b.subscriberCount() != 0 {
		t.Fatalf("want 0 subscribers, got %d", b.subscriberCount())
	}
}

func TestProgressBus_PanickingSubscriberIsIsolated(t *testing.T) {
	b := NewProgressBus()

	b.Subscribe(func(ProgressSnapshot) { panic("broken observer") })
	calls := 0
	b.Subscribe(func(ProgressSnapshot) { calls++ })

	b.Publish(ProgressSnapshot{Status: ProgressSending})
	b.Publish(ProgressSnapshot{Status: ProgressSuccess})

	if calls != 2 {
		t.Fatalf("healthy subscriber missed snapshots: want 2 calls, got %d", calls)
	}
}

func TestProgressBus_NoReplayForLateSubscribers(t *testing.T) {
	b := NewProgressBus()
	b.Publish(ProgressSnapshot{Status: ProgressSuccess})

	calls := 0
	b.Subscribe(func(ProgressSnapshot) { calls++ })
	if calls != 0 {
		t.Fatal("late subscriber must not receive past events")
	}
}
