package group

import (
	"fmt"
	"slices"
	"strings"
)

// Schema declares which tags are legal at one nesting level and which of
// them start a nested repeating group. A nil child marks a plain tag.
type Schema struct {
	tags     TagMap[*Schema]
	required map[int]struct{}
	topLevel bool
}

// NewSchema declares plain tags in order.
func NewSchema(tags ...int) *Schema {
	s := &Schema{required: map[int]struct{}{}}
	return s.Add(tags...)
}

// Add declares more plain tags.
func (s *Schema) Add(tags ...int) *Schema {
	for _, t := range tags {
		s.tags.Set(t, nil)
	}
	return s
}

// Nest declares tag as the start of a repeating group described by child.
func (s *Schema) Nest(tag int, child *Schema) *Schema {
	s.tags.Set(tag, child)
	return s
}

func (s *Schema) Require(tags ...int) *Schema {
	if s.required == nil {
		s.required = map[int]struct{}{}
	}
	for _, t := range tags {
		s.required[t] = struct{}{}
	}
	return s
}

func (s *Schema) IsTopLevel() bool { return s.topLevel }

// AsTopLevel returns a shallow copy of s flagged as the root level.
func (s *Schema) AsTopLevel() *Schema {
	out := &Schema{
		tags:     *s.tags.Clone(nil),
		required: make(map[int]struct{}, len(s.required)),
		topLevel: true,
	}
	for t := range s.required {
		out.required[t] = struct{}{}
	}
	return out
}

func (s *Schema) Len() int { return s.tags.Len() }

func (s *Schema) Tags() []int { return s.tags.Keys() }

func (s *Schema) Has(tag int) bool { return s.tags.Has(tag) }

func (s *Schema) IDTag() (int, error) {
	tag, ok := s.tags.First()
	if !ok {
		return 0, ErrEmptyGroup
	}
	return tag, nil
}

// Child returns the nested schema declared at tag.
func (s *Schema) Child(tag int) (*Schema, bool) {
	c, ok := s.tags.Get(tag)
	return c, ok && c != nil
}

// InnerGroups returns the nested schemas in declaration order.
func (s *Schema) InnerGroups() []*Schema {
	var out []*Schema
	for _, c := range s.tags.All() {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// ChildStartingWith returns the direct nested schema whose identifying tag
// is tag.
func (s *Schema) ChildStartingWith(tag int) (*Schema, bool) {
	for _, c := range s.InnerGroups() {
		if id, err := c.IDTag(); err == nil && id == tag {
			return c, true
		}
	}
	return nil, false
}

// NewInstance returns a fresh empty Group for this level: seeded with the
// identifying tag as Absent (except at top level) and inheriting the
// required tags.
func (s *Schema) NewInstance() *Group {
	g := New().SetTopLevel(s.topLevel)
	if !s.topLevel {
		if id, err := s.IDTag(); err == nil {
			g.fields.Set(id, Absent())
		}
	}
	for t := range s.required {
		g.required[t] = struct{}{}
	}
	return g
}

// ValidateConstruct checks the shape of s recursively.
func (s *Schema) ValidateConstruct() error {
	v := s.violations()
	if len(v) == 0 {
		return nil
	}
	return &ConstructError{Schema: s.label(), Violations: v}
}

func (s *Schema) IsValidConstruct() bool {
	return s.ValidateConstruct() == nil
}

func (s *Schema) violations() []string {
	name := s.label()
	if s.Len() == 0 {
		return []string{name + ": empty schema"}
	}
	var out []string
	var missing []int
	for _, t := range sortedSet(s.required) {
		if !s.tags.Has(t) {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		out = append(out, fmt.Sprintf("%s: missing required tags %v", name, missing))
	}
	var miskeyed []int
	for tag, c := range s.tags.All() {
		if c == nil {
			continue
		}
		if id, err := c.IDTag(); err == nil && id != tag {
			miskeyed = append(miskeyed, tag)
		}
	}
	if len(miskeyed) > 0 {
		out = append(out, fmt.Sprintf("%s: nested schemas at tags %v do not start with their key", name, miskeyed))
	}
	if a, b, ok := firstIntersection(s.InnerGroups()); ok {
		out = append(out, fmt.Sprintf("%s: has intersecting groups %s and %s", name, a.label(), b.label()))
	}
	for _, c := range s.InnerGroups() {
		out = append(out, c.violations()...)
	}
	return out
}

func firstIntersection(schemas []*Schema) (*Schema, *Schema, bool) {
	for i := 0; i < len(schemas); i++ {
		for j := i + 1; j < len(schemas); j++ {
			for _, t := range schemas[i].Tags() {
				if schemas[j].Has(t) {
					return schemas[i], schemas[j], true
				}
			}
		}
	}
	return nil, nil, false
}

func (s *Schema) String() string {
	parts := make([]string, 0, s.Len())
	for tag, c := range s.tags.All() {
		if c == nil {
			parts = append(parts, fmt.Sprint(tag))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d=%s", tag, c))
	}
	return "SCHEMA[" + strings.Join(parts, " ") + "]"
}

func (s *Schema) label() string {
	if s.topLevel {
		return "schema[top]"
	}
	id, err := s.IDTag()
	if err != nil {
		return "schema[empty]"
	}
	return fmt.Sprintf("schema[%d]", id)
}

func sortedSet(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
