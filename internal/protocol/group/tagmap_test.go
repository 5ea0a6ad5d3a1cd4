package group

import (
	"testing"

	"github.com/danmuck/fixctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func TestTagMapKeepsInsertionOrder(t *testing.T) {
	testlog.Start(t)
	var m TagMap[string]
	m.Set(35, "D")
	m.Set(8, "FIX.4.2")
	m.Set(49, "A")
	m.Set(35, "G")
	if diff := cmp.Diff([]int{35, 8, 49}, m.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := m.Get(35); v != "G" {
		t.Fatalf("overwrite lost: %q", v)
	}
}

func TestTagMapMoves(t *testing.T) {
	testlog.Start(t)
	m := NewTagMap[int]()
	for _, tag := range []int{1, 2, 3, 4} {
		m.Set(tag, tag*10)
	}
	m.MoveToEnd(2)
	m.MoveToFront(4)
	if diff := cmp.Diff([]int{4, 1, 3, 2}, m.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if m.MoveToEnd(99) || m.MoveToFront(99) {
		t.Fatalf("moving a missing tag should report false")
	}
	first, _ := m.First()
	last, _ := m.Last()
	if first != 4 || last != 2 {
		t.Fatalf("first=%d last=%d", first, last)
	}
}

func TestTagMapDeleteAndClone(t *testing.T) {
	testlog.Start(t)
	var m TagMap[int]
	m.Set(1, 1)
	m.Set(2, 2)
	c := m.Clone(func(v int) int { return v * 2 })
	if !m.Delete(1) || m.Delete(1) {
		t.Fatalf("delete should succeed once")
	}
	if m.Len() != 1 || c.Len() != 2 {
		t.Fatalf("clone not independent: m=%d c=%d", m.Len(), c.Len())
	}
	if v, _ := c.Get(2); v != 4 {
		t.Fatalf("dup not applied: %d", v)
	}
}
