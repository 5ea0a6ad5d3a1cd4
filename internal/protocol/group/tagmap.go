package group

import (
	"iter"

	"github.com/elliotchance/orderedmap/v3"
)

// TagMap is an insertion-ordered map from tag to V. The zero value is ready
// to use. Overwriting an existing tag keeps its position.
type TagMap[V any] struct {
	m *orderedmap.OrderedMap[int, V]
}

func NewTagMap[V any]() *TagMap[V] {
	return &TagMap[V]{m: orderedmap.NewOrderedMap[int, V]()}
}

func (t *TagMap[V]) init() {
	if t.m == nil {
		t.m = orderedmap.NewOrderedMap[int, V]()
	}
}

func (t *TagMap[V]) Len() int {
	if t.m == nil {
		return 0
	}
	return t.m.Len()
}

func (t *TagMap[V]) Get(tag int) (V, bool) {
	if t.m == nil {
		var zero V
		return zero, false
	}
	return t.m.Get(tag)
}

func (t *TagMap[V]) Has(tag int) bool {
	_, ok := t.Get(tag)
	return ok
}

func (t *TagMap[V]) Set(tag int, v V) {
	t.init()
	t.m.Set(tag, v)
}

func (t *TagMap[V]) Delete(tag int) bool {
	if t.m == nil {
		return false
	}
	return t.m.Delete(tag)
}

// First returns the first tag in iteration order.
func (t *TagMap[V]) First() (int, bool) {
	if t.m == nil {
		return 0, false
	}
	el := t.m.Front()
	if el == nil {
		return 0, false
	}
	return el.Key, true
}

// Last returns the last tag in iteration order.
func (t *TagMap[V]) Last() (int, bool) {
	if t.m == nil {
		return 0, false
	}
	el := t.m.Back()
	if el == nil {
		return 0, false
	}
	return el.Key, true
}

func (t *TagMap[V]) Keys() []int {
	out := make([]int, 0, t.Len())
	for tag := range t.All() {
		out = append(out, tag)
	}
	return out
}

// All yields entries in iteration order. Mutating the map while iterating
// is not supported; collect Keys first.
func (t *TagMap[V]) All() iter.Seq2[int, V] {
	return func(yield func(int, V) bool) {
		if t.m == nil {
			return
		}
		for el := t.m.Front(); el != nil; el = el.Next() {
			if !yield(el.Key, el.Value) {
				return
			}
		}
	}
}

// MoveToEnd repositions tag last without changing the relative order of
// the others.
func (t *TagMap[V]) MoveToEnd(tag int) bool {
	v, ok := t.Get(tag)
	if !ok {
		return false
	}
	t.m.Delete(tag)
	t.m.Set(tag, v)
	return true
}

// MoveToFront repositions tag first without changing the relative order of
// the others.
func (t *TagMap[V]) MoveToFront(tag int) bool {
	v, ok := t.Get(tag)
	if !ok {
		return false
	}
	if first, _ := t.First(); first == tag {
		return true
	}
	next := orderedmap.NewOrderedMap[int, V]()
	next.Set(tag, v)
	for el := t.m.Front(); el != nil; el = el.Next() {
		if el.Key != tag {
			next.Set(el.Key, el.Value)
		}
	}
	t.m = next
	return true
}

// Clone copies the map, passing every value through dup.
func (t *TagMap[V]) Clone(dup func(V) V) *TagMap[V] {
	out := NewTagMap[V]()
	for tag, v := range t.All() {
		if dup != nil {
			v = dup(v)
		}
		out.m.Set(tag, v)
	}
	return out
}
