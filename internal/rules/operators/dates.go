package operators

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/comalice/formchart/internal/answers"
)

// lengths in days
const (
	year  = 365.25
	month = year / 12
)

const secondsPerDay = 24 * 60 * 60

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
}

// UnitDays converts a granularity name to its length in days.
func UnitDays(unit string) (float64, error) {
	switch strings.TrimSuffix(strings.ToLower(unit), "s") {
	case "day":
		return 1, nil
	case "week":
		return 7, nil
	case "month":
		return month, nil
	case "year":
		return year, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownUnit, unit)
	}
}

// Elapsed returns (now - date) in the given unit, fractional and signed.
// It works on Unix seconds so spans beyond time.Duration's range stay exact.
func Elapsed(date, now time.Time, unitDays float64) float64 {
	secs := float64(now.Unix()-date.Unix()) + float64(now.Nanosecond()-date.Nanosecond())/1e9
	return secs / secondsPerDay / unitDays
}

// DateCompareToToday compares |now - date| in unit against reference.
// Only "<" and ">" are comparators; anything else yields ErrUnknownComparator.
func DateCompareToToday(comparator string, date, now time.Time, reference float64, unit string) (bool, error) {
	unitDays, err := UnitDays(unit)
	if err != nil {
		return false, err
	}
	diff := math.Abs(Elapsed(date, now, unitDays))
	switch comparator {
	case "<":
		return diff < reference, nil
	case ">":
		return diff > reference, nil
	default:
		return false, fmt.Errorf("%w %q", ErrUnknownComparator, comparator)
	}
}

// DateDifferenceGreaterThanTwoDays reports whether the dates are more than two days apart.
func DateDifferenceGreaterThanTwoDays(a, b time.Time) bool {
	return math.Abs(Elapsed(a, b, 1)) > 2
}

// DateExceedsTwoYearsFromNow reports whether date lies more than two years in the past.
func DateExceedsTwoYearsFromNow(date, now time.Time) bool {
	return Elapsed(date, now, year) > 2
}

// DateGreaterThanTwoDaysAgo reports whether date lies more than two days in the past.
func DateGreaterThanTwoDaysAgo(date, now time.Time) bool {
	return Elapsed(date, now, 1) > 2
}

// DateLessThanEighteenYearsAgo reports whether date lies less than eighteen years in the past.
func DateLessThanEighteenYearsAgo(date, now time.Time) bool {
	return Elapsed(date, now, year) < 18
}

func dateCompareToToday(args []string, store answers.Store, now time.Time) (bool, error) {
	comparator, ref, rawRef, unit := args[0], args[1], args[2], args[3]
	reference, err := strconv.ParseFloat(rawRef, 64)
	if err != nil {
		return false, fmt.Errorf("%w: reference %q is not a number", ErrBadArguments, rawRef)
	}
	if comparator != "<" && comparator != ">" {
		return false, fmt.Errorf("%w %q", ErrUnknownComparator, comparator)
	}
	date, ok := resolveDate(store, ref)
	if !ok {
		if _, err := UnitDays(unit); err != nil {
			return false, err
		}
		return false, nil
	}
	return DateCompareToToday(comparator, date, now, reference, unit)
}

func dateDifferenceGreaterThanTwoDays(args []string, store answers.Store, _ time.Time) (bool, error) {
	a, okA := resolveDate(store, args[0])
	b, okB := resolveDate(store, args[1])
	if !okA || !okB {
		return false, nil
	}
	return DateDifferenceGreaterThanTwoDays(a, b), nil
}

func dateExceedsTwoYearsFromNow(args []string, store answers.Store, now time.Time) (bool, error) {
	return withDate(store, args[0], func(d time.Time) bool { return DateExceedsTwoYearsFromNow(d, now) }), nil
}

func dateGreaterThanTwoDaysAgo(args []string, store answers.Store, now time.Time) (bool, error) {
	return withDate(store, args[0], func(d time.Time) bool { return DateGreaterThanTwoDaysAgo(d, now) }), nil
}

func dateLessThanEighteenYearsAgo(args []string, store answers.Store, now time.Time) (bool, error) {
	return withDate(store, args[0], func(d time.Time) bool { return DateLessThanEighteenYearsAgo(d, now) }), nil
}

func withDate(store answers.Store, ref string, pred func(time.Time) bool) bool {
	d, ok := resolveDate(store, ref)
	if !ok {
		return false
	}
	return pred(d)
}

func resolveDate(store answers.Store, ref string) (time.Time, bool) {
	v, ok := store.Resolve(ref)
	if !ok {
		return time.Time{}, false
	}
	return ParseDate(v)
}

// ParseDate accepts time.Time, date strings (RFC3339, 2006-01-02, dd/mm/yyyy) and
// {day, month, year} answer objects.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case map[string]any:
		d, okD := toNumber(x["day"])
		m, okM := toNumber(x["month"])
		y, okY := toNumber(x["year"])
		if !okD || !okM || !okY {
			return time.Time{}, false
		}
		t := time.Date(int(y), time.Month(int(m)), int(d), 0, 0, 0, 0, time.UTC)
		// reject overflow such as 31/02
		if t.Day() != int(d) || int(t.Month()) != int(m) {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}
