package settlements

import (
	"strings"
	"time"

	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
)

const dateLayout = "2006-01-02"

// ParsePeriod reads period bounds given as RFC 3339 timestamps or plain dates.
// A plain end date covers that whole day.
func ParsePeriod(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, _, err := parseBound("period_start", rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, dateOnly, err := parseBound("period_end", rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1).Add(-time.Microsecond)
	}
	if err := validatePeriod(start, end); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseBound(field, raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", field)
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", field)
	}
	return t.UTC(), false, nil
}
