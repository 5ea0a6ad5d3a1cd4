package group

import (
	"fmt"
	"slices"

	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
)

// ValidateSemantics checks g and every nested group against their
// required tags and conditions. It is recomputed on every call.
func (g *Group) ValidateSemantics() error {
	v := g.violations()
	if len(v) == 0 {
		return nil
	}
	return &SemanticError{Group: g.label(), Violations: v}
}

func (g *Group) IsValidSemantics() bool {
	return g.ValidateSemantics() == nil
}

func (g *Group) violations() []string {
	name := g.label()
	var out []string
	if g.Len() == 0 {
		out = append(out, name+": empty group")
	}

	var badValue, badTag, mismatched []int
	for tag, v := range g.fields.All() {
		if tag <= 0 {
			badTag = append(badTag, tag)
		}
		switch v.Kind() {
		case KindScalar:
		case KindGroupList:
			if len(v.groups) == 0 || slices.Contains(v.groups, nil) {
				badValue = append(badValue, tag)
				continue
			}
			for _, child := range v.groups {
				if id, err := child.IDTag(); err != nil || id != tag {
					mismatched = append(mismatched, tag)
					break
				}
			}
		case KindAbsent:
			badValue = append(badValue, tag)
		default:
			badValue = append(badValue, tag)
		}
	}

	var missing []int
	for _, t := range g.Required() {
		if !g.fields.Has(t) {
			missing = append(missing, t)
		}
	}

	if len(badValue) > 0 {
		out = append(out, fmt.Sprintf("%s: invalid type for value of tags %v", name, badValue))
	}
	if len(badTag) > 0 {
		out = append(out, fmt.Sprintf("%s: non positive tags %v", name, badTag))
	}
	if len(mismatched) > 0 {
		out = append(out, fmt.Sprintf("%s: tag %v has group without the same id tag", name, mismatched))
	}
	if len(missing) > 0 {
		out = append(out, fmt.Sprintf("%s: missing required tags %v", name, missing))
	}
	if len(badValue) == 0 {
		for _, tag := range g.InnerGroupTags() {
			v, _ := g.fields.Get(tag)
			for _, child := range v.groups {
				out = append(out, child.violations()...)
			}
		}
	}
	for _, c := range g.conds {
		if c.Check == nil || c.Check(g) {
			continue
		}
		msg := c.Message
		if msg == "" {
			msg = "required condition failed"
		}
		out = append(out, fmt.Sprintf("%s: %s", name, msg))
	}
	return out
}

// Build serializes g depth-first after validating semantics.
func (g *Group) Build(delim byte) ([]byte, error) {
	if err := g.ValidateSemantics(); err != nil {
		return nil, err
	}
	return g.appendTo(nil, delim), nil
}

func (g *Group) appendTo(dst []byte, delim byte) []byte {
	for tag, v := range g.fields.All() {
		switch v.Kind() {
		case KindScalar:
			dst = tagvalue.AppendField(dst, tag, v.scalar, delim)
		case KindGroupList:
			for _, child := range v.groups {
				dst = child.appendTo(dst, delim)
			}
		case KindAbsent:
		}
	}
	return dst
}
