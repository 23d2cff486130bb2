package identifier

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// placeholderHint is the literal field-name prompt the study instrument shows
// before the participant types their identifier. It must never parse as one.
const placeholderHint = "date_time_computer number"

// rule is one entry in the ordered extraction table. Rules are tried top to
// bottom and the first whose captures survive range validation wins; later
// rules are deliberately more permissive fallbacks, so the order is part of
// the contract.
type rule struct {
	source Source
	re     *regexp.Regexp
	build  func(g []string, anchor time.Time) (Candidate, bool)
}

var rules = []rule{
	{
		// 05122024_1600_2, also "05122024 16:00 #2"
		source: SourceStandard,
		re:     regexp.MustCompile(`(\d{2})(\d{2})(\d{4})[_\s]+(\d{2}):?(\d{2})[_\s#]*(\d+)`),
		build: func(g []string, _ time.Time) (Candidate, bool) {
			return Candidate{
				Day: atoi(g[0]), Month: atoi(g[1]), Year: atoi(g[2]),
				Hour: atoi(g[3]), Minute: atoi(g[4]), Computer: atoi(g[5]),
			}, true
		},
	},
	{
		// 5/12/2024_1600_2, 05-12-2024 16:00 2
		source: SourceSlashed,
		re:     regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})[_\s]+(\d{2}):?(\d{2})[_\s#]*(\d+)`),
		build: func(g []string, _ time.Time) (Candidate, bool) {
			return Candidate{
				Day: atoi(g[0]), Month: atoi(g[1]), Year: atoi(g[2]),
				Hour: atoi(g[3]), Minute: atoi(g[4]), Computer: atoi(g[5]),
			}, true
		},
	},
	{
		// 3122024_1600_2 — the leading zero of the day was dropped.
		source: SourceSevenDigit,
		re:     regexp.MustCompile(`(\d{7})[_\s]+(\d{2}):?(\d{2})[_\s#]*(\d+)`),
		build: func(g []string, _ time.Time) (Candidate, bool) {
			date := "0" + g[0]
			return Candidate{
				Day: atoi(date[:2]), Month: atoi(date[2:4]), Year: atoi(date[4:]),
				Hour: atoi(g[1]), Minute: atoi(g[2]), Computer: atoi(g[3]),
			}, true
		},
	},
	{
		// 051224_1600_2 — two-digit year, assumed 20xx.
		source: SourceSixDigit,
		re:     regexp.MustCompile(`(\d{2})(\d{2})(\d{2})[_\s]+(\d{2}):?(\d{2})[_\s#]*(\d+)`),
		build: func(g []string, _ time.Time) (Candidate, bool) {
			return Candidate{
				Day: atoi(g[0]), Month: atoi(g[1]), Year: 2000 + atoi(g[2]),
				Hour: atoi(g[3]), Minute: atoi(g[4]), Computer: atoi(g[5]),
			}, true
		},
	},
	{
		// "5th December 16:00 2" — year comes from the conversation date.
		source: SourceTextMonth,
		re:     regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)?\s*([A-Za-z]+)[_\s]+(\d{1,2}):?(\d{2})[_\s#]*(\d+)`),
		build: func(g []string, anchor time.Time) (Candidate, bool) {
			month, ok := monthByName(g[1])
			if !ok || anchor.IsZero() {
				return Candidate{}, false
			}
			return Candidate{
				Day: atoi(g[0]), Month: month, Year: anchor.Year(),
				Hour: atoi(g[2]), Minute: atoi(g[3]), Computer: atoi(g[4]),
			}, true
		},
	},
	{
		// 20679508_03122024_1757_11 — student code first, embedded full date.
		source: SourceCodeFullDate,
		re:     regexp.MustCompile(`(\d{8})[_\s]+(\d{8})[_\s]+(\d{2}):?(\d{2})[_\s#]*(\d+)`),
		build: func(g []string, _ time.Time) (Candidate, bool) {
			date := g[1]
			return Candidate{
				Day: atoi(date[:2]), Month: atoi(date[2:4]), Year: atoi(date[4:]),
				Hour: atoi(g[2]), Minute: atoi(g[3]), Computer: atoi(g[4]),
			}, true
		},
	},
	{
		// 20562616_1115_10 — student code plus bare time, date from anchor.
		source: SourceCodeTimeOnly,
		re:     regexp.MustCompile(`(\d{8})[_\s]+(\d{3,4})[_\s#]*(\d+)`),
		build: func(g []string, anchor time.Time) (Candidate, bool) {
			if anchor.IsZero() {
				return Candidate{}, false
			}
			h, m := splitClock(g[1])
			return anchored(anchor, h, m, atoi(g[2])), true
		},
	},
	{
		// 3_11.35_14 style: H:MM or H.MM plus computer, date from anchor.
		source: SourceShortTime,
		re:     regexp.MustCompile(`(\d{1,2})[:.](\d{2})[_\s#]*(\d+)`),
		build: func(g []string, anchor time.Time) (Candidate, bool) {
			if anchor.IsZero() {
				return Candidate{}, false
			}
			return anchored(anchor, atoi(g[0]), atoi(g[1]), atoi(g[2])), true
		},
	},
	{
		// 1600_2 — bare time plus trailing computer, lowest-priority fallback.
		source: SourceTimeOnly,
		re:     regexp.MustCompile(`(\d{3,4})[_\s#]+(\d{1,2})\b`),
		build: func(g []string, anchor time.Time) (Candidate, bool) {
			if anchor.IsZero() {
				return Candidate{}, false
			}
			h, m := splitClock(g[0])
			return anchored(anchor, h, m, atoi(g[1])), true
		},
	},
}

// Extract applies the rule table to a text span in priority order and
// returns the first candidate that survives range validation. The anchor is
// the containing conversation's creation time; rules without a date of their
// own refuse to fire when it is zero. Returns false when nothing matched.
func Extract(text string, anchor time.Time) (Candidate, bool) {
	return extract(text, anchor, false)
}

// ExtractDated is Extract restricted to the date-bearing rules. Used for
// untriggered mention scans, where the anchored fallback rules would match
// incidental numbers in ordinary conversation text.
func ExtractDated(text string, anchor time.Time) (Candidate, bool) {
	return extract(text, anchor, true)
}

func extract(text string, anchor time.Time, datedOnly bool) (Candidate, bool) {
	text = strings.Trim(strings.TrimSpace(text), ".,;")
	if strings.Contains(strings.ToLower(text), placeholderHint) {
		return Candidate{}, false
	}

	for _, r := range rules {
		if datedOnly && !r.source.DateBearing() {
			continue
		}
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		c, ok := r.build(m[1:], anchor)
		if !ok {
			continue
		}
		c.Source = r.source
		if !c.Valid() {
			// Range-invalid capture: fall through to a more permissive rule.
			continue
		}
		return c, true
	}

	return Candidate{}, false
}

// anchored builds a candidate whose date comes from the anchor timestamp.
func anchored(anchor time.Time, hour, minute, computer int) Candidate {
	return Candidate{
		Day: anchor.Day(), Month: int(anchor.Month()), Year: anchor.Year(),
		Hour: hour, Minute: minute, Computer: computer,
	}
}

// splitClock splits a bare 3-4 digit time into hour and minute ("115" → 1:15).
func splitClock(s string) (hour, minute int) {
	if len(s) == 3 {
		return atoi(s[:1]), atoi(s[1:])
	}
	return atoi(s[:2]), atoi(s[2:])
}

var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

func monthByName(name string) (int, bool) {
	name = strings.ToLower(name)
	if m, ok := monthNames[name]; ok {
		return m, true
	}
	if len(name) >= 3 {
		for full, m := range monthNames {
			if strings.HasPrefix(full, name) {
				return m, true
			}
		}
	}
	return 0, false
}

// atoi is safe here: every argument is a capture group matched by \d+.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
