package group

import "fmt"

// Path addresses a field through nested group instances as alternating
// tag and index steps: Path{350, 1, 351} is tag 351 of the second
// instance of group 350.
type Path []int

// P is shorthand for Path{steps...}.
func P(steps ...int) Path { return Path(steps) }

func (p Path) String() string {
	return fmt.Sprint([]int(p))
}

func (g *Group) member(tag, index int) (*Group, error) {
	v, ok := g.fields.Get(tag)
	if !ok {
		return nil, fmt.Errorf("%w: tag %d", ErrPathNotFound, tag)
	}
	if v.Kind() != KindGroupList {
		return nil, fmt.Errorf("%w: tag %d is %s, not a group list", ErrPathNotFound, tag, v.Kind())
	}
	if index < 0 || index >= len(v.groups) {
		return nil, fmt.Errorf("%w: tag %d index %d out of range (%d instances)", ErrPathNotFound, tag, index, len(v.groups))
	}
	return v.groups[index], nil
}

// locate walks all but the last step and returns the group holding the
// final tag.
func (g *Group) locate(p Path) (*Group, int, error) {
	if len(p) == 0 || len(p)%2 == 0 {
		return nil, 0, fmt.Errorf("%w: %v must end on a tag", ErrInvalidPath, p)
	}
	cur := g
	for i := 0; i+1 < len(p); i += 2 {
		next, err := cur.member(p[i], p[i+1])
		if err != nil {
			return nil, 0, fmt.Errorf("path %v: %w", p, err)
		}
		cur = next
	}
	return cur, p[len(p)-1], nil
}

// Get resolves p to a value.
func (g *Group) Get(p Path) (Value, error) {
	cur, tag, err := g.locate(p)
	if err != nil {
		return Value{}, err
	}
	v, ok := cur.fields.Get(tag)
	if !ok {
		return Value{}, fmt.Errorf("path %v: %w: tag %d", p, ErrPathNotFound, tag)
	}
	return v, nil
}

// GetBytes resolves p to a scalar payload.
func (g *Group) GetBytes(p Path) ([]byte, error) {
	v, err := g.Get(p)
	if err != nil {
		return nil, err
	}
	if v.Kind() != KindScalar {
		return nil, fmt.Errorf("path %v: %w: value is %s", p, ErrPathNotFound, v.Kind())
	}
	return v.Bytes(), nil
}

// Set stores v at p. Intermediate steps must already resolve.
func (g *Group) Set(p Path, v Value) error {
	cur, tag, err := g.locate(p)
	if err != nil {
		return err
	}
	cur.fields.Set(tag, v)
	return nil
}

// Delete removes the tag addressed by p.
func (g *Group) Delete(p Path) error {
	cur, tag, err := g.locate(p)
	if err != nil {
		return err
	}
	if !cur.fields.Delete(tag) {
		return fmt.Errorf("path %v: %w: tag %d", p, ErrPathNotFound, tag)
	}
	return nil
}

// GroupAt resolves a path ending on an index to that group instance.
func (g *Group) GroupAt(p Path) (*Group, error) {
	if len(p) == 0 || len(p)%2 != 0 {
		return nil, fmt.Errorf("%w: %v must end on an index", ErrInvalidPath, p)
	}
	cur := g
	for i := 0; i < len(p); i += 2 {
		next, err := cur.member(p[i], p[i+1])
		if err != nil {
			return nil, fmt.Errorf("path %v: %w", p, err)
		}
		cur = next
	}
	return cur, nil
}
