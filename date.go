package imapkit

import (
	"fmt"
	"strings"
	"time"
)

// Date and time layouts used on the wire.
const (
	// DateLayout is RFC 3501's date (no time-of-day), e.g. "2-Jan-2006".
	// RFC 3501's date-day is 1*2DIGIT, so this unpadded layout parses both
	// "1-Jan-2024" and "01-Jan-2024" (Go's numeric layout fields read up to
	// two digits regardless of a leading zero).
	DateLayout = "2-Jan-2006"
	// SearchDateLayout is the zero-padded DD-Mon-YYYY form spec.md §4.6
	// mandates for emitted SEARCH date arguments (e.g. "SINCE 01-Jan-2024"),
	// distinct from DateLayout since parsing stays lenient about padding
	// but emission must not be.
	SearchDateLayout = "02-Jan-2006"
	// DateTimeLayout is RFC 3501's full date-time.
	DateTimeLayout = "2-Jan-2006 15:04:05 -0700"
	// MessageDateTimeLayout is the common RFC 5322 section 3.3 form found
	// in a message's Date header.
	MessageDateTimeLayout = "Mon, 02 Jan 2006 15:04:05 -0700"
)

// Permutations of RFC 5322 section 3.3's date-time grammar seen in the
// wild: obsolete two-digit years, named time zones, missing day-of-week,
// missing seconds, and parenthesised zone comments.
var messageDateTimeLayouts = [...]string{
	MessageDateTimeLayout,
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700 (MST)",
	"2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04 MST",
	"2 Jan 2006 15:04 -0700 (MST)",
	"2 Jan 06 15:04:05 -0700",
	"2 Jan 06 15:04:05 MST",
	"2 Jan 06 15:04:05 -0700 (MST)",
	"2 Jan 06 15:04 -0700",
	"2 Jan 06 15:04 MST",
	"2 Jan 06 15:04 -0700 (MST)",
	"02 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700 (MST)",
	"02 Jan 2006 15:04 -0700",
	"02 Jan 2006 15:04 MST",
	"02 Jan 2006 15:04 -0700 (MST)",
	"02 Jan 06 15:04:05 -0700",
	"02 Jan 06 15:04:05 MST",
	"02 Jan 06 15:04:05 -0700 (MST)",
	"02 Jan 06 15:04 -0700",
	"02 Jan 06 15:04 MST",
	"02 Jan 06 15:04 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 MST",
	"Mon, 2 Jan 2006 15:04 -0700 (MST)",
	"Mon, 2 Jan 06 15:04:05 -0700",
	"Mon, 2 Jan 06 15:04:05 MST",
	"Mon, 2 Jan 06 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 06 15:04 -0700",
	"Mon, 2 Jan 06 15:04 MST",
	"Mon, 2 Jan 06 15:04 -0700 (MST)",
	"Mon, 02 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 02 Jan 2006 15:04 MST",
	"Mon, 02 Jan 2006 15:04 -0700 (MST)",
	"Mon, 02 Jan 06 15:04:05 -0700",
	"Mon, 02 Jan 06 15:04:05 MST",
	"Mon, 02 Jan 06 15:04:05 -0700 (MST)",
	"Mon, 02 Jan 06 15:04 -0700",
	"Mon, 02 Jan 06 15:04 MST",
	"Mon, 02 Jan 06 15:04 -0700 (MST)",
}

// ParseMessageDateTime parses a message's Date header against every known
// RFC 5322 permutation, returning the first that matches.
func ParseMessageDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range messageDateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("imapkit: date %q could not be parsed", s)
}

// ParseDateTime parses an IMAP date-time (INTERNALDATE, Appended date...).
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("imapkit: date-time %q could not be parsed", s)
	}
	return t, nil
}

// ParseDate parses an IMAP date (SINCE/BEFORE search keys...).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("imapkit: date %q could not be parsed", s)
	}
	return t, nil
}

// FormatDate renders t as a zero-padded DD-Mon-YYYY IMAP date, the form
// SEARCH date keys (SINCE, BEFORE, ON, SENTBEFORE, ...) require.
func FormatDate(t time.Time) string { return t.Format(SearchDateLayout) }

// FormatDateTime renders t as an IMAP date-time.
func FormatDateTime(t time.Time) string { return t.Format(DateTimeLayout) }
