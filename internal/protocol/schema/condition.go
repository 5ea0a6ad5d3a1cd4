package schema

import (
	"fmt"
	"strconv"

	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"
)

// condEnv is the environment condition expressions are evaluated against.
// Expressions call its methods directly: `Tag(40) != "2" || Has(44)`.
type condEnv struct {
	g *group.Group
}

// Tag returns the scalar value of tag, or "" when unset.
func (e condEnv) Tag(tag int) string {
	if e.g == nil {
		return ""
	}
	b, _ := e.g.Field(tag)
	return string(b)
}

// Has reports whether tag holds a value.
func (e condEnv) Has(tag int) bool {
	if e.g == nil {
		return false
	}
	v, ok := e.g.Lookup(tag)
	return ok && !v.IsAbsent()
}

// Count returns the number of group instances under tag.
func (e condEnv) Count(tag int) int {
	if e.g == nil {
		return 0
	}
	v, _ := e.g.Lookup(tag)
	return len(v.Groups())
}

// Num parses tag as a decimal number, 0 when unset or malformed.
func (e condEnv) Num(tag int) float64 {
	n, err := strconv.ParseFloat(e.Tag(tag), 64)
	if err != nil {
		return 0
	}
	return n
}

// CompileCondition compiles a boolean expression into a group condition.
// Evaluation errors count as a failed condition.
func CompileCondition(source, message string) (group.Condition, error) {
	program, err := expr.Compile(source, expr.Env(condEnv{}), expr.AsBool())
	if err != nil {
		return group.Condition{}, fmt.Errorf("schema: compile condition %q: %w", source, err)
	}
	return group.Cond(message, evaluator(program, source)), nil
}

// MustCompileCondition is CompileCondition for built-in expressions.
func MustCompileCondition(source, message string) group.Condition {
	c, err := CompileCondition(source, message)
	if err != nil {
		panic(err)
	}
	return c
}

func evaluator(program *vm.Program, source string) func(*group.Group) bool {
	return func(g *group.Group) bool {
		out, err := expr.Run(program, condEnv{g: g})
		if err != nil {
			log.Debug().Err(err).Str("expr", source).Msg("schema.condition eval failed")
			return false
		}
		ok, _ := out.(bool)
		return ok
	}
}
