package group

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
)

// Condition is a custom semantic predicate evaluated against a Group.
type Condition struct {
	Check   func(*Group) bool
	Message string
}

// Cond builds a Condition.
func Cond(message string, check func(*Group) bool) Condition {
	return Condition{Check: check, Message: message}
}

// Group is one level of parsed or constructed data. Its identifying tag is
// its first tag in iteration order.
type Group struct {
	fields   TagMap[Value]
	required map[int]struct{}
	conds    []Condition
	topLevel bool
}

func New() *Group {
	return &Group{required: map[int]struct{}{}}
}

// FromFields builds a group holding fields as scalars, in order.
func FromFields(fields ...tagvalue.Field) *Group {
	g := New()
	for _, f := range fields {
		g.fields.Set(f.Tag, Scalar(f.Value))
	}
	return g
}

// FromTags builds a group holding Absent placeholders for tags, in order.
func FromTags(tags ...int) *Group {
	g := New()
	for _, t := range tags {
		g.fields.Set(t, Absent())
	}
	return g
}

// Require adds tags to the required set.
func (g *Group) Require(tags ...int) *Group {
	if g.required == nil {
		g.required = map[int]struct{}{}
	}
	for _, t := range tags {
		g.required[t] = struct{}{}
	}
	return g
}

// When appends semantic conditions.
func (g *Group) When(conds ...Condition) *Group {
	g.conds = append(g.conds, conds...)
	return g
}

func (g *Group) SetTopLevel(top bool) *Group {
	g.topLevel = top
	return g
}

func (g *Group) TopLevel() bool { return g.topLevel }

// Required returns the required tags in ascending order.
func (g *Group) Required() []int {
	return sortedSet(g.required)
}

func (g *Group) Conditions() []Condition {
	return slices.Clone(g.conds)
}

func (g *Group) Len() int { return g.fields.Len() }

func (g *Group) Tags() []int { return g.fields.Keys() }

func (g *Group) Has(tag int) bool { return g.fields.Has(tag) }

// IDTag returns the first tag.
func (g *Group) IDTag() (int, error) {
	tag, ok := g.fields.First()
	if !ok {
		return 0, ErrEmptyGroup
	}
	return tag, nil
}

// Lookup returns the value stored directly at tag.
func (g *Group) Lookup(tag int) (Value, bool) {
	return g.fields.Get(tag)
}

// Field returns the scalar stored directly at tag.
func (g *Group) Field(tag int) ([]byte, bool) {
	v, ok := g.fields.Get(tag)
	if !ok || v.Kind() != KindScalar {
		return nil, false
	}
	return v.Bytes(), true
}

// SetField stores a scalar at tag, keeping its position when present.
func (g *Group) SetField(tag int, value []byte) {
	g.fields.Set(tag, Scalar(value))
}

// SetValue stores v at tag, keeping its position when present.
func (g *Group) SetValue(tag int, v Value) {
	g.fields.Set(tag, v)
}

func (g *Group) Remove(tag int) bool {
	return g.fields.Delete(tag)
}

func (g *Group) MoveToEnd(tag int) bool { return g.fields.MoveToEnd(tag) }

func (g *Group) MoveToFront(tag int) bool { return g.fields.MoveToFront(tag) }

// All yields the direct fields in iteration order.
func (g *Group) All() iter.Seq2[int, Value] { return g.fields.All() }

// Merge unions other into g. Colliding tags take other's value in g's
// position; required tags and conditions are combined.
func (g *Group) Merge(other *Group) {
	for tag, v := range other.fields.All() {
		g.fields.Set(tag, v)
	}
	g.Require(other.Required()...)
	g.conds = append(g.conds, other.conds...)
}

// AddInnerGroup appends child to the group list under its identifying tag
// and moves that tag to the end of g.
func (g *Group) AddInnerGroup(child *Group) error {
	id, err := child.IDTag()
	if err != nil {
		return err
	}
	cur, ok := g.fields.Get(id)
	switch {
	case !ok || cur.Kind() == KindAbsent:
		g.fields.Set(id, List(child))
	case cur.Kind() == KindGroupList:
		g.fields.Set(id, List(append(cur.groups, child)...))
	default:
		return fmt.Errorf("%w: tag %d", ErrNotGroupList, id)
	}
	g.fields.MoveToEnd(id)
	return nil
}

// Scalars yields every scalar field depth-first, descending into group
// lists in place.
func (g *Group) Scalars() iter.Seq2[int, []byte] {
	return func(yield func(int, []byte) bool) {
		g.walkScalars(yield)
	}
}

func (g *Group) walkScalars(yield func(int, []byte) bool) bool {
	for tag, v := range g.fields.All() {
		switch v.Kind() {
		case KindScalar:
			if !yield(tag, v.scalar) {
				return false
			}
		case KindGroupList:
			for _, child := range v.groups {
				if child != nil && !child.walkScalars(yield) {
					return false
				}
			}
		case KindAbsent:
		}
	}
	return true
}

// InnerGroupTags returns the tags holding group lists.
func (g *Group) InnerGroupTags() []int {
	var out []int
	for tag, v := range g.fields.All() {
		if v.Kind() == KindGroupList {
			out = append(out, tag)
		}
	}
	return out
}

// Clone deep-copies g including requirements.
func (g *Group) Clone() *Group {
	out := &Group{
		fields:   *g.fields.Clone(Value.clone),
		required: make(map[int]struct{}, len(g.required)),
		conds:    slices.Clone(g.conds),
		topLevel: g.topLevel,
	}
	for t := range g.required {
		out.required[t] = struct{}{}
	}
	return out
}

// Equal reports whether both trees hold the same tags, order, nesting and
// values. Requirements are not compared.
func (g *Group) Equal(other *Group) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.Len() != other.Len() {
		return false
	}
	a, b := g.Tags(), other.Tags()
	if !slices.Equal(a, b) {
		return false
	}
	for _, tag := range a {
		va, _ := g.fields.Get(tag)
		vb, _ := other.fields.Get(tag)
		if !va.equal(vb) {
			return false
		}
	}
	return true
}

func (g *Group) String() string {
	parts := make([]string, 0, g.Len())
	for tag, v := range g.fields.All() {
		parts = append(parts, fmt.Sprintf("%d=%s", tag, v))
	}
	return "GRP[" + strings.Join(parts, " ") + "]"
}

func (g *Group) label() string {
	if g.topLevel {
		return "group[top]"
	}
	id, err := g.IDTag()
	if err != nil {
		return "group[empty]"
	}
	return fmt.Sprintf("group[%d]", id)
}
