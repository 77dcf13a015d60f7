package reconcile

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DeviationError is returned when at least one entity comparison found a
// deviation. The full formatted report is the error message so that a
// monitoring job scraping the command's stderr sees every unmatched record.
type DeviationError struct {
	Report string
}

func (e *DeviationError) Error() string {
	return e.Report
}

// Runner executes one reconciliation run: extract both sides for every
// registered check, compare, and report. A Runner holds no state across
// runs; every invocation starts clean.
type Runner struct {
	Reference Source
	Legacy    Source
	Checks    []Check

	// GroupName names the set of tables being checked in the success
	// message, e.g. `Patient and Caregiver`.
	GroupName string

	Out io.Writer
	Log zerolog.Logger

	// Now is the report clock; defaults to time.Now. Injected for tests.
	Now func() time.Time
}

// Run drives the full reconciliation sequentially, with no concurrency and
// no retries. Any extraction failure aborts immediately: nothing is compared
// and nothing is reported, including entity types whose extraction already
// succeeded. On clean completion a single success line is written to Out;
// on deviations a *DeviationError carrying the full report is returned.
func (r *Runner) Run(ctx context.Context) error {
	now := r.Now
	if now == nil {
		now = time.Now
	}

	runID := uuid.New()
	log := r.Log.With().Stringer("run_id", runID).Logger()

	for _, c := range r.Checks {
		if err := c.Extract(ctx, r.Reference, r.Legacy); err != nil {
			return err
		}
		log.Debug().Str("entity", c.Entity()).Msg("extraction complete")
	}

	results := make([]EntityResult, 0, len(r.Checks))
	for _, c := range r.Checks {
		res := c.Compare()
		log.Info().
			Str("entity", res.Entity).
			Int("reference_count", res.Result.LeftCount).
			Int("legacy_count", res.Result.RightCount).
			Int("unmatched", len(res.Result.Unmatched)).
			Bool("clean", res.Result.Clean()).
			Msg("comparison complete")
		results = append(results, res)
	}

	report := FormatReport(results, now())
	if report != "" {
		return &DeviationError{Report: report}
	}

	fmt.Fprintf(r.Out, "No deviations have been found in the %q tables.\n", r.GroupName)
	return nil
}
