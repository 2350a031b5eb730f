// Package mctsparam holds the immutable parameter space: Parameter,
// Assignment, and the process-wide Parameter registry that interns
// parameters by name.
package mctsparam

import "sort"

// Assignment binds one Parameter to one of its values. Assignments are
// immutable name/value pairs; a Node's ordered sequence of Assignments
// is what gets rendered into a Callstring and what keys the Node store.
type Assignment struct {
	Name  string
	Value string
}

// Clause is one AND-term of a conditional: the parameter is only free when
// the dependency named DepName currently holds one of Values.
type Clause struct {
	DepName string
	Values  []string
}

// Parameter is immutable once interned: a name, its domain of values, and
// an optional OR-of-AND condition tree (empty means "always free").
type Parameter struct {
	Name   string
	Values []string

	// Conditions is an OR across groups; a group is satisfied when every
	// Clause in it holds against the current assignment map. An empty
	// Conditions means the parameter has no dependency and is always free.
	Conditions [][]Clause
}

// FreeGiven reports whether p is eligible for assignment given the
// currently assigned values (keyed by parameter name).
func (p *Parameter) FreeGiven(assigned map[string]string) bool {
	if len(p.Conditions) == 0 {
		return true
	}
	for _, group := range p.Conditions {
		if clauseGroupSatisfied(group, assigned) {
			return true
		}
	}
	return false
}

func clauseGroupSatisfied(group []Clause, assigned map[string]string) bool {
	for _, clause := range group {
		val, ok := assigned[clause.DepName]
		if !ok {
			return false
		}
		if !contains(clause.Values, val) {
			return false
		}
	}
	return true
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// AssignmentMap builds a name->value map from an ordered assignment slice.
func AssignmentMap(assignments []Assignment) map[string]string {
	m := make(map[string]string, len(assignments))
	for _, a := range assignments {
		m[a.Name] = a.Value
	}
	return m
}

// Key returns a canonical, order-independent string identifying the set of
// assignments. Two assignment slices that contain the same pairs (in any
// order) produce the same key; this is the "frozenset" identity the node
// store interns against.
func Key(assignments []Assignment) string {
	pairs := make([]string, len(assignments))
	for i, a := range assignments {
		pairs[i] = a.Name + "=" + a.Value
	}
	sort.Strings(pairs)
	key := ""
	for i, p := range pairs {
		if i > 0 {
			key += "\x00"
		}
		key += p
	}
	return key
}
