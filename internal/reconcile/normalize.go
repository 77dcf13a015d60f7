package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Canonical sex codes shared by both sides of every comparison.
const (
	SexMale      = "M"
	SexFemale    = "F"
	SexOther     = "O"
	SexUnknown   = "U"
	SexUndefined = "UNDEFINED"
)

// SexFromLegacy maps the legacy store's free-form sex values onto the
// canonical code space. Anything unrecognized becomes UNDEFINED rather than
// an error so that bad legacy data surfaces as a deviation, not a crash.
func SexFromLegacy(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "M", "MALE":
		return SexMale
	case "F", "FEMALE":
		return SexFemale
	case "O", "OTHER":
		return SexOther
	default:
		return SexUndefined
	}
}

// SexFromReference upper-cases the reference store's single-letter sex code
// as-is. The reference side is trusted to already use the canonical space;
// it is intentionally not funneled through the legacy mapping so that a
// reference value outside the code space shows up verbatim in the report.
func SexFromReference(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// AccessLevelFromLegacy maps the legacy numeric access level onto the
// reference store's data-access codes.
func AccessLevelFromLegacy(raw string) string {
	switch strings.TrimSpace(raw) {
	case "1":
		return "NTK"
	case "3":
		return "ALL"
	default:
		return SexUndefined
	}
}

// DateOnly renders a date-bearing column value as YYYY-MM-DD. NULL renders
// as the empty string so nullable dates on both sides compare cleanly.
func DateOnly(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format("2006-01-02")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}

// Text renders a scalar column value as a string, mapping NULL to "".
func Text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

// LowerText is Text with case folding, used for emails and language codes.
func LowerText(v any) string {
	return strings.ToLower(Text(v))
}

// UpperText is Text with upper-casing, used for site codes.
func UpperText(v any) string {
	return strings.ToUpper(Text(v))
}

// Int64 coerces an integer-bearing column value. NULL maps to zero.
func Int64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int:
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse integer column %q: %w", n, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unexpected integer column type %T", v)
	}
}

// Bool coerces a boolean-bearing column value. The legacy store stores flags
// as tinyints, the reference store as booleans; both arrive here.
func Bool(v any) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case int64:
		return b != 0, nil
	case int32:
		return b != 0, nil
	case int16:
		return b != 0, nil
	case int:
		return b != 0, nil
	default:
		return false, fmt.Errorf("unexpected boolean column type %T", v)
	}
}
