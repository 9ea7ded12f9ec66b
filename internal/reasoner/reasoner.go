// Package reasoner abstracts the external reasoning call used by stages to
// produce narrative text. Structural results never depend on it: stages keep
// deterministic fallback text, so a reasoner failure degrades wording, not
// structure.
package reasoner

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var (
	ErrReasoningFailed  = errors.New("REASONING_FAILED")
	ErrReasoningTimeout = errors.New("REASONING_TIMEOUT")
)

// Client produces narrative text for a report section from structured facts.
type Client interface {
	Narrate(ctx context.Context, section string, facts map[string]string) (string, error)
}

// Local is the deterministic in-process reasoner. It renders facts in sorted
// key order, so identical inputs always yield identical text.
type Local struct{}

// NewLocal returns the deterministic reasoner.
func NewLocal() *Local {
	return &Local{}
}

// Narrate joins the facts into a single deterministic sentence block.
func (l *Local) Narrate(_ context.Context, section string, facts map[string]string) (string, error) {
	if len(facts) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, facts[k])
	}
	return strings.Join(parts, " "), nil
}
