package reconcile

import (
	"fmt"
	"strings"
	"time"
)

// splitLength is the width of the divider bounding each unmatched-record
// listing.
const splitLength = 120

// FormatReport renders every non-clean result as a timestamped error block
// and concatenates them. It returns the empty string when every result is
// clean; a non-empty return is a deviation and must fail the run.
func FormatReport(results []EntityResult, now time.Time) string {
	var b strings.Builder
	for _, res := range results {
		if res.Result.Clean() {
			continue
		}
		writeBlock(&b, res, now)
	}
	return b.String()
}

func writeBlock(b *strings.Builder, res EntityResult, now time.Time) {
	fmt.Fprintf(
		b,
		"\n%s: found deviations between %s reference table and %s legacy table!!!",
		now.Format("2006-01-02 15:04:05-07:00"),
		res.ReferenceLabel,
		res.LegacyLabel,
	)

	if res.Result.LeftCount != res.Result.RightCount {
		fmt.Fprintf(
			b,
			"\n\nThe number of records in %q and %q tables does not match!",
			res.ReferenceLabel,
			res.LegacyLabel,
		)
		fmt.Fprintf(
			b,
			"\n%s: %d\n%s: %d",
			res.ReferenceLabel,
			res.Result.LeftCount,
			res.LegacyLabel,
			res.Result.RightCount,
		)
	}

	divider := strings.Repeat("-", splitLength)
	fmt.Fprintf(b, "\n\n%s\n%s  <===>  %s:\n\n", divider, res.ReferenceLabel, res.LegacyLabel)
	b.WriteString(strings.Join(res.Result.Unmatched, "\n"))
	fmt.Fprintf(b, "\n%s\n\n\n", divider)
}
