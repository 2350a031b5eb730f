// Package callstring implements the command-line template language used
// to render a parameter assignment into an argv string: constants and
// $variable$ placeholders, with [optional] argument groups and
// [,$name$] optional trailing variables inside a required argument.
package callstring

import (
	"regexp"
	"strings"

	"github.com/yourorg/paramsearch/internal/errors"
	"github.com/yourorg/paramsearch/internal/mctsparam"
)

// argumentPattern recognizes one argument token: an optional leading
// "[", an optional "-flag " or "--flag=" prefix, the variable payload,
// and an optional trailing "]". RE2 has no conditional backreference, so
// both brackets are simply optional and well-formed templates close what
// they open.
var argumentPattern = regexp.MustCompile(`(\[)?(-[-\w]+[ =])?(\$[-$,\[\]\w]+\$)(\])?`)

// variablePattern recognizes one $name$ placeholder inside an argument,
// optionally wrapped in its own "[...]" marking it as droppable even when
// its enclosing argument is required.
var variablePattern = regexp.MustCompile(`(\[)?,?\$([-\w]+)\$(\])?`)

// Callstring is a parsed command-line template, ready to be rendered
// against an Assignment map via Assign.
type Callstring struct {
	raw       string
	arguments []argument
}

type argument struct {
	raw      string
	optional bool
	flag     string // e.g. "--test=" or "-n " or "" for a bare positional
	vars     []variable
}

type variable struct {
	name     string
	optional bool
}

// Parse compiles a callstring template such as:
//
//	$ins$ --number $num$ --test=$a$,$b$[,$c$] [--opt=$d$]
func Parse(template string) *Callstring {
	cs := &Callstring{raw: template}

	matches := argumentPattern.FindAllStringSubmatchIndex(template, -1)
	for _, m := range matches {
		start, end := m[0], m[1]
		// Only a leading "[" marks the argument optional: a trailing "]"
		// alone belongs to an inner [,$var$] group, as in
		// "--test=$a$,$b$[,$c$]", where the argument itself is required.
		argOptional := m[2] >= 0
		flag := ""
		if m[4] >= 0 {
			flag = template[m[4]:m[5]]
		}

		raw := template[start:end]
		arg := argument{raw: raw, optional: argOptional, flag: flag}

		for _, vm := range variablePattern.FindAllStringSubmatch(raw, -1) {
			name := vm[2]
			// Only a variable's own leading "[" marks it optional: a trailing
			// "]" alone is the close of an optional argument, as in
			// "[--opt=$d$]", where d stays required within the argument.
			varOptional := vm[1] == "["
			arg.vars = append(arg.vars, variable{name: name, optional: varOptional})
		}

		cs.arguments = append(cs.arguments, arg)
	}

	return cs
}

// Assign renders the template against an assignment map (and any
// scenario-space constants merged into it ahead of time by the caller).
// A required variable missing from assignment fails with a VariableError
// that propagates to the caller, unless it occurs while formatting an
// optional argument, in which case the error is swallowed and the whole
// argument is dropped. An argument with no required-variable error that
// still resolves nothing is dropped if optional, or raises an
// ArgumentError if required.
func (c *Callstring) Assign(assignment map[string]string) (string, error) {
	var parts []string

	for _, arg := range c.arguments {
		rendered, resolvedAny, err := formatArgument(arg, assignment)
		if err != nil {
			if arg.optional {
				continue
			}
			return "", err
		}
		if !resolvedAny {
			if !arg.optional {
				return "", errors.ArgumentError(arg.raw)
			}
			continue
		}
		parts = append(parts, arg.flag+rendered)
	}

	return strings.Join(parts, " "), nil
}

func formatArgument(arg argument, assignment map[string]string) (string, bool, error) {
	var values []string
	for _, v := range arg.vars {
		val, ok := assignment[v.name]
		if !ok {
			if v.optional {
				continue
			}
			return "", false, errors.VariableError(v.name)
		}
		if val == "" {
			// An empty-string value contributes nothing, the same as a
			// missing optional variable: filtered before the join, not
			// joined in as a bare comma.
			continue
		}
		values = append(values, val)
	}
	if len(values) == 0 {
		return "", false, nil
	}
	return strings.Join(values, ","), true, nil
}

// AssignmentFromAssignments converts an ordered Assignment slice into the
// map Assign expects.
func AssignmentFromAssignments(assignments []mctsparam.Assignment) map[string]string {
	return mctsparam.AssignmentMap(assignments)
}

// MergeConstants overlays constants (e.g. scenarioSpace.parameters.{num,
// seed}.default) onto assignment, with constants taking priority: a
// template's constants resolve before the assignment map does. Callers
// merge once before calling Assign rather than threading a second
// constants map through Parse.
func MergeConstants(constants, assignment map[string]string) map[string]string {
	merged := make(map[string]string, len(assignment)+len(constants))
	for k, v := range assignment {
		merged[k] = v
	}
	for k, v := range constants {
		merged[k] = v
	}
	return merged
}
