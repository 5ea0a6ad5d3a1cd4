package protocol

import (
	"fmt"

	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
	"github.com/rs/zerolog/log"
)

// Parse reads raw tag/value bytes into a plain message, using structure to
// recognise repeating groups. A nil structure parses every tag at top level.
// The envelope is kept as received; call Reset to recompute it.
func Parse(raw []byte, structure *group.Schema, opts Options) (*Message, error) {
	opts = opts.withDefaults()
	root, err := parseGroup(raw, structure, opts)
	if err != nil {
		return nil, err
	}
	m := newMessage(root, opts)
	m.structure = structure
	opts.Reset = ResetNone()
	if err := m.init(opts); err != nil {
		return nil, err
	}
	return m, nil
}

// parser tracks the schema level and the group being filled. The stacks
// hold the enclosing levels.
type parser struct {
	schemas  []*group.Schema
	outputs  []*group.Group
	cur      *group.Schema
	out      *group.Group
	validate bool
}

func parseGroup(raw []byte, structure *group.Schema, opts Options) (*group.Group, error) {
	var top *group.Schema
	if structure == nil {
		top = group.NewSchema().AsTopLevel()
	} else {
		if opts.ValidateConstruct {
			if err := structure.ValidateConstruct(); err != nil {
				return nil, err
			}
		}
		top = structure.AsTopLevel()
	}
	p := &parser{cur: top, out: top.NewInstance(), validate: opts.ValidateSemantics}

	toks := tagvalue.Split(raw, opts.Delimiter)
	for _, tok := range toks {
		tag, err := tagvalue.ParseTag(tok.Tag)
		if err != nil {
			return nil, err
		}
		if err := p.feed(tag, tok.Value); err != nil {
			log.Debug().Err(err).Int("tag", tag).Msg("protocol.Parse rejected")
			return nil, err
		}
	}
	for len(p.outputs) > 0 {
		if err := p.pop(); err != nil {
			return nil, err
		}
	}
	log.Debug().Int("tokens", len(toks)).Int("fields", p.out.Len()).Msg("protocol.Parse ok")
	return p.out, nil
}

func (p *parser) feed(tag int, value []byte) error {
	if p.enterChild(tag, value) {
		return nil
	}
	if ok, err := p.nextSibling(tag, value); ok || err != nil {
		return err
	}
	for !p.cur.Has(tag) && !p.cur.IsTopLevel() {
		if err := p.pop(); err != nil {
			return err
		}
	}
	if p.enterChild(tag, value) {
		return nil
	}
	if ok, err := p.nextSibling(tag, value); ok || err != nil {
		return err
	}
	if p.out.Has(tag) {
		return &RepeatedTagError{Tag: tag}
	}
	p.out.SetField(tag, value)
	return nil
}

// enterChild opens a nested group when tag starts one at the current level.
func (p *parser) enterChild(tag int, value []byte) bool {
	child, ok := p.cur.ChildStartingWith(tag)
	if !ok {
		return false
	}
	p.schemas = append(p.schemas, p.cur)
	p.outputs = append(p.outputs, p.out)
	p.cur = child
	p.out = child.NewInstance()
	p.out.SetField(tag, value)
	return true
}

// nextSibling closes the current instance and opens another when tag starts
// a group declared by the enclosing level.
func (p *parser) nextSibling(tag int, value []byte) (bool, error) {
	if p.cur.IsTopLevel() || len(p.schemas) == 0 {
		return false, nil
	}
	sib, ok := p.schemas[len(p.schemas)-1].ChildStartingWith(tag)
	if !ok {
		return false, nil
	}
	if err := p.attach(); err != nil {
		return false, err
	}
	p.cur = sib
	p.out = sib.NewInstance()
	p.out.SetField(tag, value)
	return true, nil
}

// attach appends the current instance to its parent.
func (p *parser) attach() error {
	if p.validate {
		if err := p.out.ValidateSemantics(); err != nil {
			return fmt.Errorf("protocol: encountered invalid group: %w", err)
		}
	}
	parent := p.outputs[len(p.outputs)-1]
	return parent.AddInnerGroup(p.out)
}

func (p *parser) pop() error {
	if err := p.attach(); err != nil {
		return err
	}
	n := len(p.schemas) - 1
	p.cur, p.schemas = p.schemas[n], p.schemas[:n]
	p.out, p.outputs = p.outputs[n], p.outputs[:n]
	return nil
}
