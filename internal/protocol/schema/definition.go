package schema

import (
	"fmt"
	"maps"
	"slices"

	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
)

// Definition is the declarative form of a Kind, as loaded from config.
type Definition struct {
	Name       string            `toml:"name" yaml:"name"`
	MsgType    string            `toml:"msg_type" yaml:"msg_type"`
	Required   []int             `toml:"required" yaml:"required"`
	Defaults   map[string]string `toml:"defaults" yaml:"defaults"`
	Conditions []ConditionDef    `toml:"conditions" yaml:"conditions"`
	Groups     []GroupDef        `toml:"groups" yaml:"groups"`
}

// ConditionDef is one boolean expression and the message reported when it
// evaluates false.
type ConditionDef struct {
	Expr    string `toml:"expr" yaml:"expr"`
	Message string `toml:"message" yaml:"message"`
}

// GroupDef declares a repeating group: its tags in order, the first being
// the identifying tag, plus nested groups.
type GroupDef struct {
	Tags     []int      `toml:"tags" yaml:"tags"`
	Required []int      `toml:"required" yaml:"required"`
	Groups   []GroupDef `toml:"groups" yaml:"groups"`
}

// Compile turns a definition into a validated Kind.
func Compile(def Definition) (Kind, error) {
	k := Kind{
		Name:     nameKey(def.Name),
		MsgType:  def.MsgType,
		Required: slices.Clone(def.Required),
	}
	keys := slices.Collect(maps.Keys(def.Defaults))
	slices.Sort(keys)
	for _, raw := range keys {
		tag, err := tagvalue.ParseTag([]byte(raw))
		if err != nil {
			return Kind{}, ValidationError{Kind: def.Name, Reason: fmt.Sprintf("default tag %q: %v", raw, err)}
		}
		k.Defaults = append(k.Defaults, tagvalue.F(tag, def.Defaults[raw]))
	}
	for _, cd := range def.Conditions {
		c, err := CompileCondition(cd.Expr, cd.Message)
		if err != nil {
			return Kind{}, ValidationError{Kind: def.Name, Reason: err.Error()}
		}
		k.Conditions = append(k.Conditions, c)
	}
	if len(def.Groups) > 0 {
		root := group.NewSchema()
		for _, gd := range def.Groups {
			child, id, err := compileGroup(def.Name, gd)
			if err != nil {
				return Kind{}, err
			}
			root.Nest(id, child)
		}
		k.Structure = root
	}
	if err := k.Validate(); err != nil {
		return Kind{}, err
	}
	return k, nil
}

func compileGroup(kind string, gd GroupDef) (*group.Schema, int, error) {
	if len(gd.Tags) == 0 {
		return nil, 0, ValidationError{Kind: kind, Reason: "group declares no tags"}
	}
	s := group.NewSchema(gd.Tags...).Require(gd.Required...)
	for _, nested := range gd.Groups {
		child, id, err := compileGroup(kind, nested)
		if err != nil {
			return nil, 0, err
		}
		s.Nest(id, child)
	}
	return s, gd.Tags[0], nil
}

// CompileAll compiles defs in order, stopping at the first failure.
func CompileAll(defs []Definition) ([]Kind, error) {
	out := make([]Kind, 0, len(defs))
	for _, d := range defs {
		k, err := Compile(d)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}
