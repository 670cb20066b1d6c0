// Package strategy derives position signals from indicator series and
// provides a Registry for managing multiple signal rules.
package strategy

import (
	"sort"

	"ganymede/internal/domain"
	"ganymede/internal/indicator"
)

// Rule maps two aligned indicator series (fast and slow) to a signal series
// of the same length. The execution and analysis layers are polymorphic over
// Rule: alternative rules plug in without touching either.
type Rule func(fast, slow []indicator.Value) []domain.Signal

// Registry holds a named collection of rules for lookup and enumeration.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry creates an empty rule Registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string]Rule),
	}
}

// Register adds a rule to the registry under the given name.
func (r *Registry) Register(name string, rule Rule) {
	r.rules[name] = rule
}

// Get retrieves a rule by name. The second return value indicates whether
// the rule was found.
func (r *Registry) Get(name string) (Rule, bool) {
	rule, ok := r.rules[name]
	return rule, ok
}

// List returns a sorted slice of all registered rule names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Changes derives per-bar position transitions from a signal series by
// comparing each signal to the prior bar's. Index 0 never fires a change
// regardless of its signal: the first bar establishes the baseline state, so
// no phantom first-bar trade is possible.
func Changes(signals []domain.Signal) []domain.PositionChange {
	changes := make([]domain.PositionChange, len(signals))
	for i := 1; i < len(signals); i++ {
		switch {
		case signals[i-1] == domain.SignalFlat && signals[i] == domain.SignalLong:
			changes[i] = domain.ChangeEnter
		case signals[i-1] == domain.SignalLong && signals[i] == domain.SignalFlat:
			changes[i] = domain.ChangeExit
		default:
			changes[i] = domain.ChangeNone
		}
	}
	return changes
}
