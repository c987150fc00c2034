package buffer

import (
	"reflect"
	"testing"
)

func TestClosedHistory_NewestFirstBounded(t *testing.T) {
	h := closedHistory{max: 2}
	h.push(ClosedEntry{Path: "/a"})
	h.push(ClosedEntry{Path: "/b"})
	h.push(ClosedEntry{Path: "/c", Pinned: true})

	entries := h.list()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Path != "/c" || entries[1].Path != "/b" {
		t.Errorf("Expected newest-first order [/c /b], got %+v", entries)
	}

	head, ok := h.peek()
	if !ok || head.Path != "/c" || !head.Pinned {
		t.Errorf("Expected to peek pinned /c, got %+v ok=%v", head, ok)
	}

	popped, ok := h.pop()
	if !ok || popped.Path != "/c" {
		t.Errorf("Expected to pop /c, got %+v ok=%v", popped, ok)
	}
	if remaining := h.list(); len(remaining) != 1 || remaining[0].Path != "/b" {
		t.Errorf("Expected [/b] after pop, got %+v", remaining)
	}
}

func TestClosedHistory_Empty(t *testing.T) {
	h := closedHistory{max: 4}
	if _, ok := h.peek(); ok {
		t.Error("Expected peek on an empty history to report nothing")
	}
	if _, ok := h.pop(); ok {
		t.Error("Expected pop on an empty history to report nothing")
	}
}

func TestClosedHistory_ZeroMaxDisables(t *testing.T) {
	h := closedHistory{max: 0}
	h.push(ClosedEntry{Path: "/a"})
	if len(h.list()) != 0 {
		t.Error("Expected a zero-sized history to record nothing")
	}
}

func TestRecentList_TouchMovesToFront(t *testing.T) {
	r := recentList{max: 4}
	r.touch("/a")
	r.touch("/b")
	r.touch("/c")
	r.touch("/a")

	got := r.list()
	want := []string{"/a", "/c", "/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestRecentList_Bounded(t *testing.T) {
	r := recentList{max: 2}
	r.touch("/a")
	r.touch("/b")
	r.touch("/c")

	got := r.list()
	want := []string{"/c", "/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestRecentList_ZeroMaxDisables(t *testing.T) {
	r := recentList{max: 0}
	r.touch("/a")
	if len(r.list()) != 0 {
		t.Error("Expected a zero-sized recent list to record nothing")
	}
}
