// Package render formats messages for consoles and logs.
package render

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
)

// Filtered renders raw as "tag: value| tag: value", leaving out exclude.
func Filtered(raw []byte, delim byte, exclude []int) string {
	parts := make([]string, 0, 16)
	for _, tok := range tagvalue.Split(raw, delim) {
		if tag, err := tagvalue.ParseTag(tok.Tag); err == nil && slices.Contains(exclude, tag) {
			continue
		}
		parts = append(parts, string(tok.Tag)+": "+string(tok.Value))
	}
	return strings.Join(parts, "| ")
}

// Caret renders raw with '^' in place of delim.
func Caret(raw []byte, delim byte) string {
	return string(tagvalue.SwapDelimiter(raw, delim, tagvalue.CaretDelimiter))
}

// Colors holds the sprintf functions used by Tree.
type Colors struct {
	Tag   func(string, ...any) string
	Name  func(string, ...any) string
	Value func(string, ...any) string
	Group func(string, ...any) string
}

func NewColors() *Colors {
	return &Colors{
		Tag:   color.RGB(128, 216, 236).SprintfFunc(),
		Name:  color.RGB(96, 96, 96).SprintfFunc(),
		Value: color.RGB(8, 196, 16).SprintfFunc(),
		Group: color.RGB(196, 96, 16).SprintfFunc(),
	}
}

// PlainColors renders without escapes.
func PlainColors() *Colors {
	return &Colors{Tag: fmt.Sprintf, Name: fmt.Sprintf, Value: fmt.Sprintf, Group: fmt.Sprintf}
}

// Tree writes one line per field, indenting group instances.
func Tree(w io.Writer, g *group.Group, c *Colors) error {
	if c == nil {
		c = PlainColors()
	}
	var buf bytes.Buffer
	writeTree(&buf, g, c, 0)
	_, err := w.Write(buf.Bytes())
	return err
}

func writeTree(buf *bytes.Buffer, g *group.Group, c *Colors, depth int) {
	indent := strings.Repeat("  ", depth)
	for tag, v := range g.All() {
		label := c.Tag("%d", tag)
		if name, ok := TagName(tag); ok {
			label += " " + c.Name("(%s)", name)
		}
		switch v.Kind() {
		case group.KindScalar:
			fmt.Fprintf(buf, "%s%s = %s\n", indent, label, c.Value("%s", v.Bytes()))
		case group.KindGroupList:
			fmt.Fprintf(buf, "%s%s %s\n", indent, label, c.Group("[%d]", len(v.Groups())))
			for i, child := range v.Groups() {
				fmt.Fprintf(buf, "%s  %s\n", indent, c.Group("- #%d", i))
				writeTree(buf, child, c, depth+2)
			}
		default:
			fmt.Fprintf(buf, "%s%s %s\n", indent, label, c.Name("<absent>"))
		}
	}
}

// YAML dumps g as an ordered mapping of tag to value; group lists become
// sequences of mappings.
func YAML(g *group.Group) ([]byte, error) {
	return yaml.Marshal(mapSlice(g))
}

func mapSlice(g *group.Group) yaml.MapSlice {
	out := make(yaml.MapSlice, 0, g.Len())
	for tag, v := range g.All() {
		key := strconv.Itoa(tag)
		switch v.Kind() {
		case group.KindScalar:
			out = append(out, yaml.MapItem{Key: key, Value: string(v.Bytes())})
		case group.KindGroupList:
			items := make([]yaml.MapSlice, 0, len(v.Groups()))
			for _, child := range v.Groups() {
				items = append(items, mapSlice(child))
			}
			out = append(out, yaml.MapItem{Key: key, Value: items})
		default:
			out = append(out, yaml.MapItem{Key: key, Value: nil})
		}
	}
	return out
}
