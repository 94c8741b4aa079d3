package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Period is a fiscal period reference. Zero Year or Quarter means the
// component was not stated. Raw preserves the label as written.
type Period struct {
	Raw     string `json:"raw,omitempty"`
	Year    int    `json:"year,omitempty"`
	Quarter int    `json:"quarter,omitempty"`
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Quarter == 0
}

func (p Period) String() string {
	switch {
	case p.Quarter > 0 && p.Year > 0:
		return fmt.Sprintf("Q%d %d", p.Quarter, p.Year)
	case p.Quarter > 0:
		return fmt.Sprintf("Q%d", p.Quarter)
	case p.Year > 0:
		return strconv.Itoa(p.Year)
	default:
		return p.Raw
	}
}

var (
	quarterPattern     = regexp.MustCompile(`(?i)\bq([0-9])\b`)
	yearPattern        = regexp.MustCompile(`\b(19|20)[0-9]{2}\b`)
	fiscalYearPattern  = regexp.MustCompile(`(?i)\bfy\s?'?([0-9]{2,4})\b`)
	quarterWordPattern = regexp.MustCompile(`(?i)\b(first|second|third|fourth)\s+quarter\b`)
)

var quarterWords = map[string]int{
	"first":  1,
	"second": 2,
	"third":  3,
	"fourth": 4,
}

// ParsePeriod reads a fiscal period from free text, accepting the aliases
// that show up in filings and queries: "Q2", "Q2 2024", "2024", "FY24",
// "FY2024", "second quarter 2024". A quarter token outside Q1-Q4 is a
// malformed period, reported as an error so callers can fail fast.
func ParsePeriod(s string) (Period, error) {
	text := strings.TrimSpace(s)
	if text == "" {
		return Period{}, nil
	}

	period := Period{Raw: text}

	if m := quarterPattern.FindStringSubmatch(text); m != nil {
		q, _ := strconv.Atoi(m[1])
		if q < 1 || q > 4 {
			return Period{}, WrapError(ErrInvalidQuery, "parse period", fmt.Errorf("quarter out of range: Q%d", q))
		}
		period.Quarter = q
	} else if m := quarterWordPattern.FindStringSubmatch(text); m != nil {
		period.Quarter = quarterWords[strings.ToLower(m[1])]
	}

	if m := fiscalYearPattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		if year < 100 {
			year += 2000
		}
		period.Year = year
	} else if m := yearPattern.FindString(text); m != "" {
		period.Year, _ = strconv.Atoi(m)
	}

	return period, nil
}

// Exactness scores how well an indexed entity period satisfies the query
// period, in [0,1]. Zero means incompatible and the row is filtered out.
// A query with no period constrains nothing.
func (p Period) Exactness(entity Period) float64 {
	if p.IsZero() {
		return 1.0
	}

	if p.Quarter > 0 && entity.Quarter > 0 && p.Quarter != entity.Quarter {
		return 0
	}
	if p.Year > 0 && entity.Year > 0 && p.Year != entity.Year {
		return 0
	}

	exact := 1.0
	if p.Quarter > 0 && entity.Quarter == 0 {
		exact -= 0.15
	}
	if p.Year > 0 && entity.Year == 0 {
		exact -= 0.10
	}
	if p.Quarter == 0 && entity.Quarter > 0 {
		// Query asked for a year; a quarter row is narrower than requested.
		exact -= 0.10
	}
	return exact
}
