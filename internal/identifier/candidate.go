package identifier

import (
	"fmt"
	"time"
)

// Source identifies which extraction rule produced a candidate.
type Source int

const (
	SourceStandard Source = iota // ddmmyyyy_HHMM_N
	SourceSlashed                // dd/mm/yyyy or dd-mm-yyyy
	SourceSevenDigit             // dmmyyyy with the leading zero dropped
	SourceSixDigit               // ddmmyy, two-digit year
	SourceTextMonth              // spelled-out month name
	SourceCodeFullDate           // 8-digit student code followed by a full date
	SourceCodeTimeOnly           // 8-digit student code followed by a bare time
	SourceShortTime              // H:MM or H.MM
	SourceTimeOnly               // bare 3-4 digit time
	SourceInferred               // synthesized from the scheduling grid
)

func (s Source) String() string {
	switch s {
	case SourceStandard:
		return "standard"
	case SourceSlashed:
		return "slashed"
	case SourceSevenDigit:
		return "7digit"
	case SourceSixDigit:
		return "6digit"
	case SourceTextMonth:
		return "text_month"
	case SourceCodeFullDate:
		return "studentid_full"
	case SourceCodeTimeOnly:
		return "studentid_time"
	case SourceShortTime:
		return "short_time"
	case SourceTimeOnly:
		return "time_only"
	case SourceInferred:
		return "inferred"
	default:
		return "unknown"
	}
}

// DateBearing reports whether the rule captured a full calendar date from the
// text itself. The remaining rules borrow the date from the conversation's
// creation timestamp, which makes them too permissive for untriggered scans.
func (s Source) DateBearing() bool {
	switch s {
	case SourceStandard, SourceSlashed, SourceSevenDigit, SourceSixDigit, SourceTextMonth, SourceCodeFullDate:
		return true
	}
	return false
}

// Candidate is one structured participant identifier pulled out of message
// text. All fields are already normalized: the year is four digits, the time
// is 24-hour, and Computer is the plain workstation number.
type Candidate struct {
	Day      int
	Month    int
	Year     int
	Hour     int
	Minute   int
	Computer int
	Source   Source
}

// Canonical renders the deduplication key, DDMMYYYY_HHMM_NN. Two candidates
// that normalize to the same date, time and computer collapse to the same
// canonical string regardless of which rule matched.
func (c Candidate) Canonical() string {
	return fmt.Sprintf("%02d%02d%04d_%02d%02d_%02d", c.Day, c.Month, c.Year, c.Hour, c.Minute, c.Computer)
}

// Valid checks the captured fields against calendar and clock ranges.
// A candidate that fails here is treated as "no match" for its rule.
func (c Candidate) Valid() bool {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return false
	}
	if c.Computer < 0 {
		return false
	}
	if c.Year < 1 || c.Month < 1 || c.Month > 12 || c.Day < 1 || c.Day > 31 {
		return false
	}
	// Round-trip through time.Date to reject impossible dates like Feb 30.
	d := time.Date(c.Year, time.Month(c.Month), c.Day, 0, 0, 0, 0, time.UTC)
	return d.Year() == c.Year && int(d.Month()) == c.Month && d.Day() == c.Day
}

// FromTime builds a candidate from a wall-clock instant and a workstation
// number. Used by the inference engine to synthesize identifiers for grid
// cells that never yielded a textual one.
func FromTime(t time.Time, computer int) Candidate {
	return Candidate{
		Day:      t.Day(),
		Month:    int(t.Month()),
		Year:     t.Year(),
		Hour:     t.Hour(),
		Minute:   t.Minute(),
		Computer: computer,
		Source:   SourceInferred,
	}
}
