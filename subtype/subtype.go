// Polymorphic resolution: pick the concrete type a node is built as.
//
// By default, each candidate is tried against a copy of the node and
// candidates that fail are discarded. Among survivors, a custom selector
// (if any) has the final word, otherwise the first survivor in declaration
// order wins.
package subtype

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/pasqal-io/yamlext/node"
	"github.com/pasqal-io/yamlext/registry"
	"github.com/pasqal-io/yamlext/shared"
	"github.com/pasqal-io/yamlext/strategy"
)

// Attempt to build a node as a candidate type.
//
// A trial receives its own copy of the node and may mutate it freely.
// Returning an error rejects the candidate.
type Trial func(n *node.Node, candidate reflect.Type) error

// Pick the concrete type of `n` among the candidates of `substitution`.
//
//   - `declared` the declared type, e.g. an interface;
//   - `selector` the selector of the substitution, or nil;
//   - `trial` the compatibility check used to filter candidates.
func Select(n *node.Node, declared reflect.Type, substitution registry.Substitution, selector strategy.Selector, trial Trial) (reflect.Type, error) {
	candidates := substitution.Candidates
	unfiltered := substitution.DisableFiltering
	if custom, ok := selector.(strategy.UnfilteredSelector); ok && custom.DisableFiltering() {
		unfiltered = true
	}

	if unfiltered {
		if selector == nil {
			if len(candidates) == 0 {
				return nil, shared.NoApplicableSubtypeError{Declared: declared, Candidates: candidates, Failures: nil}
			}
			return candidates[0], nil
		}
		return pick(n, declared, candidates, candidates, selector)
	}

	survivors := make([]reflect.Type, 0, len(candidates))
	var failures []error
	for _, candidate := range candidates {
		err := trial(n.Clone(), candidate)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s rejected:\n\t * %w", shared.TypeName(candidate), err))
			if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
				slog.Debug("Rejected subtype candidate", "declared", declared, "candidate", candidate, "error", err, "node", node.Dump(n))
			}
			continue
		}
		survivors = append(survivors, candidate)
	}
	if len(survivors) == 0 {
		return nil, shared.NoApplicableSubtypeError{
			Declared:   declared,
			Candidates: candidates,
			Failures:   failures,
		}
	}
	if selector == nil {
		return survivors[0], nil
	}
	return pick(n, declared, candidates, survivors, selector)
}

// Delegate the final pick to a custom selector.
func pick(n *node.Node, declared reflect.Type, candidates []reflect.Type, offered []reflect.Type, selector strategy.Selector) (reflect.Type, error) {
	chosen, err := selector.Select(n, declared, append([]reflect.Type(nil), offered...))
	if err != nil {
		return nil, shared.NoApplicableSubtypeError{
			Declared:   declared,
			Candidates: candidates,
			Failures:   []error{fmt.Errorf("selector %T failed:\n\t * %w", selector, err)},
		}
	}
	if chosen == nil {
		return nil, shared.NoApplicableSubtypeError{
			Declared:   declared,
			Candidates: candidates,
			Failures:   []error{fmt.Errorf("selector %T chose no candidate", selector)},
		}
	}
	if !Compatible(chosen, declared) {
		return nil, shared.NoApplicableSubtypeError{
			Declared:   declared,
			Candidates: candidates,
			Failures:   []error{fmt.Errorf("selector %T chose %s, which cannot stand for %s", selector, shared.TypeName(chosen), shared.TypeName(declared))},
		}
	}
	return chosen, nil
}

// Return true if a value of type `concrete` (or a pointer to one) may be
// stored where `declared` is expected.
func Compatible(concrete reflect.Type, declared reflect.Type) bool {
	if concrete == declared || concrete.AssignableTo(declared) {
		return true
	}
	if declared.Kind() == reflect.Interface {
		return reflect.PointerTo(concrete).Implements(declared)
	}
	if declared.Kind() == reflect.Pointer {
		return reflect.PointerTo(concrete).AssignableTo(declared)
	}
	return false
}
