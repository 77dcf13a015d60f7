package reconcile

import (
	"context"
	"fmt"
)

// Spec is the static description of one entity comparison: the paired
// projection queries, the human-readable side labels used in report text,
// and the boundary decodes. Specs are defined at process start and never
// mutated; per-run state lives in the check built from a spec.
type Spec[R Tuple] struct {
	Entity         string
	ReferenceLabel string
	LegacyLabel    string
	ReferenceQuery string
	LegacyQuery    string
	ReferenceArgs  []any
	LegacyArgs     []any

	// DecodeReference and DecodeLegacy may differ: the two stores encode
	// the same semantic fields differently and each side's normalization
	// mirrors its own query's projection.
	DecodeReference DecodeFunc[R]
	DecodeLegacy    DecodeFunc[R]
}

// EntityResult pairs one entity's comparison output with its report labels.
type EntityResult struct {
	Entity         string
	ReferenceLabel string
	LegacyLabel    string
	Result         Result
}

// Check is one entity comparison in flight. Extraction and comparison are
// separate phases so the runner can extract every entity up front and only
// then compare: an extraction failure must prevent any result from being
// reported, including results that could already have been computed.
type Check interface {
	Entity() string
	Extract(ctx context.Context, reference, legacy Source) error
	Compare() EntityResult
}

type check[R Tuple] struct {
	spec  Spec[R]
	left  []R
	right []R
}

// NewCheck builds a run-scoped check from a comparison spec.
func NewCheck[R Tuple](spec Spec[R]) Check {
	return &check[R]{spec: spec}
}

func (c *check[R]) Entity() string {
	return c.spec.Entity
}

func (c *check[R]) Extract(ctx context.Context, reference, legacy Source) error {
	left, err := Extract(ctx, reference, c.spec.ReferenceQuery, c.spec.DecodeReference, c.spec.ReferenceArgs...)
	if err != nil {
		return fmt.Errorf("extract %s: %w", c.spec.Entity, err)
	}
	right, err := Extract(ctx, legacy, c.spec.LegacyQuery, c.spec.DecodeLegacy, c.spec.LegacyArgs...)
	if err != nil {
		return fmt.Errorf("extract %s: %w", c.spec.Entity, err)
	}
	c.left = left
	c.right = right
	return nil
}

func (c *check[R]) Compare() EntityResult {
	return EntityResult{
		Entity:         c.spec.Entity,
		ReferenceLabel: c.spec.ReferenceLabel,
		LegacyLabel:    c.spec.LegacyLabel,
		Result:         Compare(c.left, c.right),
	}
}
