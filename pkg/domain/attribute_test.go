package domain

import (
	"slices"
	"testing"
)

func TestAttributeSetSameValueIsNoop(t *testing.T) {
	attr := NewAttribute("a", EventSubject)
	ev := NewEvent()
	if attr.Set(ev, "owner", "a") {
		t.Fatalf("expected unchanged value to return false")
	}
	if !ev.Empty() {
		t.Fatalf("expected no notification, got %v", ev.Types())
	}
	if !attr.Set(ev, "owner", "b") {
		t.Fatalf("expected changed value to return true")
	}
	p, ok := ev.Payload("owner", EventSubject)
	if !ok {
		t.Fatalf("expected subject notification")
	}
	if v, ok := p.(Value[string]); !ok || v.New != "b" {
		t.Fatalf("unexpected payload %#v", p)
	}
}

func TestAttributeEnrichmentTypes(t *testing.T) {
	attr := NewAttribute("", EventFont, EventAppearance)
	ev := NewEvent()
	attr.Set(ev, "x", "Mono 10")
	if got := ev.Types(); !slices.Equal(got, []EventType{EventFont, EventAppearance}) {
		t.Fatalf("unexpected types %v", got)
	}
	if _, ok := ev.Payload("x", EventAppearance); !ok {
		t.Fatalf("expected appearance notification")
	}
}

func TestAttributeNilEventMutatesSilently(t *testing.T) {
	attr := NewAttribute(1, EventPriority)
	if !attr.Set(nil, "x", 2) || attr.Get() != 2 {
		t.Fatalf("expected value to change without a batch")
	}
}

func TestSetAttributeDeltas(t *testing.T) {
	set := NewSetAttribute[ID](categoryEvents, "a")
	ev := NewEvent()
	if set.Add(ev, "o", "a") {
		t.Fatalf("adding an existing member must not report a change")
	}
	if !set.Add(ev, "o", "b", "c", "b") {
		t.Fatalf("expected add to report a change")
	}
	if got := set.Get(); !slices.Equal(got, []ID{"a", "b", "c"}) {
		t.Fatalf("unexpected members %v", got)
	}
	added, _ := ev.Payload("o", EventCategoriesAdded)
	if d := added.(Delta[ID]); !slices.Equal(d.Added, []ID{"b", "c"}) || len(d.Removed) != 0 {
		t.Fatalf("unexpected added delta %#v", d)
	}
	if ev.Has("o", EventCategoriesRemoved) {
		t.Fatalf("no removal happened")
	}

	ev = NewEvent()
	if !set.Set(ev, "o", []ID{"c", "d"}) {
		t.Fatalf("expected set to report a change")
	}
	changed, _ := ev.Payload("o", EventCategories)
	d := changed.(Delta[ID])
	if !slices.Equal(d.Added, []ID{"d"}) || !slices.Equal(d.Removed, []ID{"a", "b"}) {
		t.Fatalf("unexpected changed delta %#v", d)
	}
	removed, _ := ev.Payload("o", EventCategoriesRemoved)
	if r := removed.(Delta[ID]); len(r.Added) != 0 || !slices.Equal(r.Removed, []ID{"a", "b"}) {
		t.Fatalf("removed event must only carry removals: %#v", r)
	}
	if set.Set(NewEvent(), "o", []ID{"d", "c"}) {
		t.Fatalf("reordering is not a membership change")
	}
}

func TestSetAttributeGetReturnsCopy(t *testing.T) {
	set := NewSetAttribute[ID](categoryEvents, "a")
	got := set.Get()
	got[0] = "mutated"
	if !set.Contains("a") {
		t.Fatalf("Get must not expose internal storage")
	}
}

func TestOwnedCollection(t *testing.T) {
	notes := NewOwnedCollection[ID](noteEvents)
	ev := NewEvent()
	notes.Add(ev, "task", "n1", "n2")
	notes.Remove(ev, "task", "n1")
	if got := notes.Items(); !slices.Equal(got, []ID{"n2"}) {
		t.Fatalf("unexpected items %v", got)
	}
	if !ev.Has("task", EventNotesAdded) || !ev.Has("task", EventNotesRemoved) || !ev.Has("task", EventNotes) {
		t.Fatalf("expected added, removed and changed notifications, got %v", ev.Types())
	}
	cp := notes.clone()
	cp.Add(nil, "task", "n3")
	if notes.Contains("n3") {
		t.Fatalf("clone must not share storage")
	}
}

func TestEventKeepsOneNotificationPerSourceAndType(t *testing.T) {
	ev := NewEvent()
	ev.AddSource("a", EventSubject, Value[string]{New: "1"})
	ev.AddSource("b", EventSubject, Value[string]{New: "2"})
	ev.AddSource("a", EventSubject, Value[string]{New: "3"})
	ev.AddSource("a", EventDue, nil)

	if got := ev.Types(); !slices.Equal(got, []EventType{EventSubject, EventDue}) {
		t.Fatalf("unexpected type order %v", got)
	}
	notes := ev.Notifications(EventSubject)
	if len(notes) != 2 || notes[0].Source != "a" || notes[1].Source != "b" {
		t.Fatalf("unexpected notifications %#v", notes)
	}
	if v := notes[0].Payload.(Value[string]); v.New != "3" {
		t.Fatalf("latest payload must win, got %q", v.New)
	}
	if _, ok := notes[0].Payload.(Value[string]); !ok {
		t.Fatalf("payload type lost")
	}
	if p, _ := ev.Payload("a", EventDue); p != (None{}) {
		t.Fatalf("nil payload must be stored as None, got %#v", p)
	}

	sub := ev.SubEvent(EventSubject, "b")
	if sub == nil || !slices.Equal(sub.Sources(EventSubject), []ID{"b"}) || len(sub.Types()) != 1 {
		t.Fatalf("unexpected sub event %#v", sub)
	}
	if ev.SubEvent(EventSubject, "zzz") != nil {
		t.Fatalf("expected nil sub event when no source matches")
	}
}

func TestEventMergesDeltas(t *testing.T) {
	ev := NewEvent()
	ev.AddSource("list", EventItemsAdded, Delta[ID]{Added: []ID{"a"}})
	ev.AddSource("list", EventItemsAdded, Delta[ID]{Added: []ID{"b", "a"}})
	p, _ := ev.Payload("list", EventItemsAdded)
	if got := p.(Delta[ID]).Added; !slices.Equal(got, []ID{"a", "b"}) {
		t.Fatalf("expected merged members [a b], got %v", got)
	}

	ev.AddSource("owner", EventCategories, Delta[ID]{Added: []ID{"x"}, Removed: []ID{"y"}})
	ev.AddSource("owner", EventCategories, Delta[ID]{Added: []ID{"y"}, Removed: []ID{"z"}})
	p, _ = ev.Payload("owner", EventCategories)
	if d := p.(Delta[ID]); !slices.Equal(d.Added, []ID{"x"}) || !slices.Equal(d.Removed, []ID{"z"}) {
		t.Fatalf("expected removed-then-added member to cancel, got %+v", d)
	}

	ev.AddSource("owner", EventCategories, Delta[ID]{Removed: []ID{"x"}, Added: []ID{"z"}})
	if ev.Has("owner", EventCategories) || slices.Contains(ev.Types(), EventCategories) {
		t.Fatalf("expected a delta that cancels out to be dropped, types %v", ev.Types())
	}
	if !slices.Equal(ev.Types(), []EventType{EventItemsAdded}) {
		t.Fatalf("unexpected types %v", ev.Types())
	}
}
