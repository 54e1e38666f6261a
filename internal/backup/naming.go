package backup

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayout is the second-granularity instant embedded in archive names.
// Builder and rotor both parse and format through this file so the two can
// never disagree about an archive's creation time.
const timestampLayout = "2006-01-02-150405"

// ArchiveName returns the canonical archive filename for an instant:
// <prefix>-YYYY-MM-DD-HHMMSS.<ext>
func ArchiveName(prefix string, ts time.Time, codec CompressionType) string {
	return fmt.Sprintf("%s-%s.%s", prefix, ts.Format(timestampLayout), codec.Extension())
}

// ParseArchiveName extracts the embedded creation instant from an archive
// filename. A name that carries the expected prefix and extension but an
// unparseable timestamp is reported with ok=false; the rotor force-keeps
// those files.
func ParseArchiveName(name, prefix string, codec CompressionType) (time.Time, bool) {
	stem, found := strings.CutSuffix(name, "."+codec.Extension())
	if !found {
		return time.Time{}, false
	}
	raw, found := strings.CutPrefix(stem, prefix+"-")
	if !found {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(timestampLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// MatchesNamingScheme reports whether a filename belongs to the managed
// archive set, regardless of whether its timestamp parses.
func MatchesNamingScheme(name, prefix string, codec CompressionType) bool {
	return strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, "."+codec.Extension())
}

// DayKey returns the calendar-date bucket key of an instant
func DayKey(ts time.Time) string {
	return ts.Format("2006-01-02")
}

// WeekKey returns the ISO week bucket key of an instant. The ISO year is used
// so that late-December and early-January dates land in the same bucket.
func WeekKey(ts time.Time) string {
	year, week := ts.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthKey returns the calendar-month bucket key of an instant
func MonthKey(ts time.Time) string {
	return ts.Format("2006-01")
}
