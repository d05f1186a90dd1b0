// Package usecases contains the mining pipeline's business logic: method
// matching, the per-commit task, and the orchestrating worker pool.
package usecases

import "github.com/changegraph/changeminer/internal/domain"

// MatchMethods pairs pre- and post-commit methods by exact qualified-name
// equality. The scan is O(n*m); per-file method counts are small.
//
// When several new-side methods share a qualified name (a redefinition in
// the same scope), the last one seen wins. Python resolves a redefined name
// to the final definition, so the pairing follows suit.
func MatchMethods(oldMethods, newMethods []domain.Method) []domain.MethodPair {
	pairs := make([]domain.MethodPair, 0, len(oldMethods))
	for _, old := range oldMethods {
		matched := -1
		for i := range newMethods {
			if newMethods[i].QualifiedName == old.QualifiedName {
				matched = i
			}
		}
		if matched >= 0 {
			pairs = append(pairs, domain.MethodPair{Old: old, New: newMethods[matched]})
		}
	}
	return pairs
}
