package schema

import (
	"fmt"

	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
)

// Kind describes one message type: the tags it requires, the conditions it
// must satisfy, the fields seeded into every instance and, for kinds that
// carry repeating groups, the structure used to parse them.
//
// A Kind is a value. Structure is shared between messages and must not be
// mutated after registration.
type Kind struct {
	Name       string
	MsgType    string
	Required   []int
	Conditions []group.Condition
	Defaults   []tagvalue.Field
	Structure  *group.Schema
}

// ValidationError reports a malformed kind or kind definition.
type ValidationError struct {
	Kind   string
	Tag    int
	Reason string
}

func (e ValidationError) Error() string {
	if e.Tag == 0 {
		return fmt.Sprintf("schema: kind=%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("schema: kind=%s tag=%d: %s", e.Kind, e.Tag, e.Reason)
}

// Group returns a fresh group seeded with 35 and the kind's defaults,
// carrying the kind's required tags and conditions.
func (k Kind) Group() *group.Group {
	fields := make([]tagvalue.Field, 0, len(k.Defaults)+1)
	fields = append(fields, tagvalue.Field{Tag: TagMsgType, Value: []byte(k.MsgType)})
	fields = append(fields, k.Defaults...)
	g := group.FromFields(fields...)
	g.Require(k.Required...).When(k.Conditions...)
	return g
}

// Validate checks that the kind is usable for construction and parsing.
func (k Kind) Validate() error {
	if k.Name == "" {
		return ValidationError{Kind: k.MsgType, Reason: "missing name"}
	}
	if k.MsgType == "" {
		return ValidationError{Kind: k.Name, Tag: TagMsgType, Reason: "missing message type"}
	}
	for _, t := range k.Required {
		if t <= 0 {
			return ValidationError{Kind: k.Name, Tag: t, Reason: "required tag must be positive"}
		}
	}
	for _, f := range k.Defaults {
		if f.Tag <= 0 {
			return ValidationError{Kind: k.Name, Tag: f.Tag, Reason: "default tag must be positive"}
		}
		if f.Tag == TagMsgType {
			return ValidationError{Kind: k.Name, Tag: f.Tag, Reason: "message type is not a default"}
		}
	}
	if k.Structure != nil {
		if err := k.Structure.ValidateConstruct(); err != nil {
			return ValidationError{Kind: k.Name, Reason: err.Error()}
		}
	}
	return nil
}
