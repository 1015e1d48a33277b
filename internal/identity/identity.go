// Package identity classifies a behavioral vector into a discrete identity
// state. Two strategies share one contract: a deterministic rule chain and
// an external language-model classifier that degrades to the rule chain on
// any failure. Classification never hard-fails the pipeline.
package identity

import (
	"context"

	"github.com/jordanhubbard/weft/pkg/types"
)

// Result is a tagged classification outcome. When the external strategy
// cannot produce a usable answer, Fallback is set and the embedded
// classification comes from the rule chain; the degraded path is an
// explicit branch, not an error.
type Result struct {
	State          types.IdentityState
	Confidence     float64
	Reasoning      string
	Fallback       bool
	FallbackReason string
}

// Classifier maps a behavioral vector to an identity state.
type Classifier interface {
	Classify(ctx context.Context, vector types.BehavioralVector) Result
}
