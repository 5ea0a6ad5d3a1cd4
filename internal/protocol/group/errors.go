package group

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPathNotFound = errors.New("group: path not found")
	ErrInvalidPath  = errors.New("group: invalid path")
	ErrEmptyGroup   = errors.New("group: empty group")
	ErrNotGroupList = errors.New("group: id tag holds a non-list value")
)

// SemanticError aggregates every data-level violation found in one
// validation pass over a Group tree.
type SemanticError struct {
	Group      string
	Violations []string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("group: invalid semantics in %s: %s", e.Group, strings.Join(e.Violations, ", "))
}

// ConstructError aggregates every shape violation found in a Schema tree.
type ConstructError struct {
	Schema     string
	Violations []string
}

func (e *ConstructError) Error() string {
	return fmt.Sprintf("group: invalid construct %s: %s", e.Schema, strings.Join(e.Violations, ", "))
}
