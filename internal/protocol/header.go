package protocol

import (
	"fmt"

	"github.com/danmuck/fixctl/internal/protocol/schema"
)

// IsValidCond reports whether the message satisfies its kind's layout rules.
func (m *Message) IsValidCond() bool {
	return m.ValidateCond() == nil
}

// ValidateCond checks header-bearing messages: 8, 9 and 35 lead, 10 closes,
// header tags form one contiguous prefix and the envelope is current.
// Plain messages always pass.
func (m *Message) ValidateCond() error {
	if !m.header {
		return nil
	}
	tags := m.root.Tags()
	for _, t := range []int{schema.TagBeginString, schema.TagBodyLength, schema.TagMsgType, schema.TagCheckSum} {
		if !m.root.Has(t) {
			return &HeaderError{Violations: []string{fmt.Sprintf("missing tag %d", t)}}
		}
	}
	var v []string
	if tags[0] != schema.TagBeginString || tags[1] != schema.TagBodyLength || tags[2] != schema.TagMsgType {
		v = append(v, fmt.Sprintf("leading tags %v, want [8 9 35]", tags[:3]))
	}
	if last := tags[len(tags)-1]; last != schema.TagCheckSum {
		v = append(v, fmt.Sprintf("last tag %d, want 10", last))
	}
	if stray := strayHeaderTags(tags); len(stray) > 0 {
		v = append(v, fmt.Sprintf("header tags %v after body", stray))
	}
	if err := m.CheckEnvelope(); err != nil {
		v = append(v, err.Error())
	}
	if len(v) > 0 {
		return &HeaderError{Violations: v}
	}
	return nil
}

// strayHeaderTags returns header tags that follow the first body tag. 10
// is a trailer and never counts.
func strayHeaderTags(tags []int) []int {
	i := 0
	for i < len(tags) && schema.IsHeaderTag(tags[i]) {
		i++
	}
	var out []int
	for _, t := range tags[i:] {
		if schema.IsHeaderTag(t) {
			out = append(out, t)
		}
	}
	return out
}
