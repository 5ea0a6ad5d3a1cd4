package group

import (
	"bytes"
	"fmt"
	"strings"
)

// Kind discriminates the three Value variants.
type Kind uint8

const (
	// KindAbsent is a placeholder; it never serializes.
	KindAbsent Kind = iota
	KindScalar
	KindGroupList
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindScalar:
		return "scalar"
	case KindGroupList:
		return "group-list"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is the payload stored under a tag.
type Value struct {
	kind   Kind
	scalar []byte
	groups []*Group
}

func Absent() Value { return Value{kind: KindAbsent} }

func Scalar(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindScalar, scalar: b}
}

func String(s string) Value { return Scalar([]byte(s)) }

func List(groups ...*Group) Value {
	return Value{kind: KindGroupList, groups: groups}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Bytes returns the scalar payload, nil for other kinds.
func (v Value) Bytes() []byte {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// Groups returns the group instances, nil for other kinds.
func (v Value) Groups() []*Group {
	if v.kind != KindGroupList {
		return nil
	}
	return v.groups
}

func (v Value) clone() Value {
	switch v.kind {
	case KindScalar:
		return Scalar(bytes.Clone(v.scalar))
	case KindGroupList:
		gs := make([]*Group, len(v.groups))
		for i, g := range v.groups {
			gs[i] = g.Clone()
		}
		return List(gs...)
	default:
		return Absent()
	}
}

func (v Value) equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindScalar:
		return bytes.Equal(v.scalar, o.scalar)
	case KindGroupList:
		if len(v.groups) != len(o.groups) {
			return false
		}
		for i := range v.groups {
			if !v.groups[i].Equal(o.groups[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		return fmt.Sprintf("%q", v.scalar)
	case KindGroupList:
		parts := make([]string, len(v.groups))
		for i, g := range v.groups {
			parts[i] = g.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return "<absent>"
	}
}
