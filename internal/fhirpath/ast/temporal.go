// Copyright 2024 Joel Montavon.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ast

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// TemporalKind closes the set {date, datetime, time}.
type TemporalKind int

const (
	TemporalDate TemporalKind = iota
	TemporalDateTime
	TemporalTime
)

// TemporalPrecision closes the set of recognized precisions.
type TemporalPrecision int

const (
	PrecisionYear TemporalPrecision = iota
	PrecisionMonth
	PrecisionDay
	PrecisionHour
	PrecisionMinute
	PrecisionSecond
	PrecisionFraction
)

// TemporalInfo is attached to every temporal Literal (spec.md §3.2). Start
// and End describe the half-open interval a partial-precision value denotes
// (e.g. @2015 spans [2015-01-01T00:00:00, 2016-01-01T00:00:00)).
type TemporalInfo struct {
	Kind            TemporalKind
	Precision       TemporalPrecision
	Normalized      string
	Start           time.Time
	End             time.Time
	IsPartial       bool
	Timezone        string
	OriginalSource  string
	FractionDigits  int
}

var (
	dateRe = regexp.MustCompile(`^@(\d{4})(?:-(\d{2})(?:-(\d{2}))?)?(T)?$`)
	dateTimeRe = regexp.MustCompile(`^@(\d{4})-(\d{2})-(\d{2})T(\d{2})?(?::(\d{2}))?(?::(\d{2})(?:\.(\d+))?)?(Z|[+-]\d{2}:\d{2})?$`)
	timeRe = regexp.MustCompile(`^@T(\d{2})(?::(\d{2}))?(?::(\d{2})(?:\.(\d+))?)?$`)
)

// ParseTemporal parses an '@'-prefixed FHIRPath temporal literal. originalSource
// is the exact token text as it appeared before any lexer normalization
// (stashed so the builder can recover a stripped trailing 'T', per spec.md
// §4.2 item 6).
func ParseTemporal(originalSource string) (*TemporalInfo, error) {
	raw := originalSource

	if m := timeRe.FindStringSubmatch(raw); m != nil {
		return parseTimeMatch(m, raw)
	}
	if hasTimeComponent(raw) {
		if m := dateTimeRe.FindStringSubmatch(raw); m != nil {
			return parseDateTimeMatch(m, raw)
		}
	}
	if m := dateRe.FindStringSubmatch(raw); m != nil {
		return parseDateMatch(m, raw)
	}
	return nil, fmt.Errorf("unrecognized temporal literal %q", raw)
}

func hasTimeComponent(raw string) bool {
	for i, r := range raw {
		if r == 'T' && i > 0 {
			return true
		}
	}
	return false
}

func parseDateMatch(m []string, raw string) (*TemporalInfo, error) {
	year := m[1]
	month := m[2]
	day := m[3]
	trailingT := m[4] == "T"

	precision := PrecisionYear
	monthNum, dayNum := 1, 1
	if month != "" {
		precision = PrecisionMonth
		n, _ := strconv.Atoi(month)
		monthNum = n
	}
	if day != "" {
		precision = PrecisionDay
		n, _ := strconv.Atoi(day)
		dayNum = n
	}
	yearNum, _ := strconv.Atoi(year)

	start := time.Date(yearNum, time.Month(monthNum), dayNum, 0, 0, 0, 0, time.UTC)
	end := addOneUnit(start, precision)

	kind := TemporalDate
	isPartial := precision != PrecisionDay
	if trailingT {
		// A trailing 'T' on a date-shaped literal makes it a DateTime, not a
		// Date (spec.md §4.2 item 6), at the precision written (year, month
		// or day) — "partial" in the sense that no clock time was given.
		kind = TemporalDateTime
		isPartial = true
	}

	return &TemporalInfo{
		Kind:           kind,
		Precision:      precision,
		Normalized:     raw,
		Start:          start,
		End:            end,
		IsPartial:      isPartial,
		OriginalSource: raw,
	}, nil
}

func parseDateTimeMatch(m []string, raw string) (*TemporalInfo, error) {
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, minute, second := 0, 0, 0
	precision := PrecisionDay
	fractionDigits := 0
	nsec := 0

	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		precision = PrecisionHour
	}
	if m[5] != "" {
		minute, _ = strconv.Atoi(m[5])
		precision = PrecisionMinute
	}
	if m[6] != "" {
		second, _ = strconv.Atoi(m[6])
		precision = PrecisionSecond
	}
	if m[7] != "" {
		fractionDigits = len(m[7])
		precision = PrecisionFraction
		frac, _ := strconv.Atoi(m[7])
		scale := 1
		for i := 0; i < 9-fractionDigits; i++ {
			scale *= 10
		}
		nsec = frac * scale
	}

	tz := m[8]
	loc := time.UTC
	if tz != "" && tz != "Z" {
		parsed, err := time.Parse("-07:00", tz)
		if err == nil {
			loc = parsed.Location()
		}
	}

	start := time.Date(year, time.Month(month), day, hour, minute, second, nsec, loc)
	end := addOneUnit(start, precision)

	return &TemporalInfo{
		Kind:           TemporalDateTime,
		Precision:      precision,
		Normalized:     raw,
		Start:          start,
		End:            end,
		IsPartial:      precision != PrecisionFraction,
		Timezone:       tz,
		OriginalSource: raw,
		FractionDigits: fractionDigits,
	}, nil
}

func parseTimeMatch(m []string, raw string) (*TemporalInfo, error) {
	hour, _ := strconv.Atoi(m[1])
	minute, second := 0, 0
	precision := PrecisionHour
	fractionDigits := 0
	nsec := 0

	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
		precision = PrecisionMinute
	}
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
		precision = PrecisionSecond
	}
	if m[4] != "" {
		fractionDigits = len(m[4])
		precision = PrecisionFraction
		frac, _ := strconv.Atoi(m[4])
		scale := 1
		for i := 0; i < 9-fractionDigits; i++ {
			scale *= 10
		}
		nsec = frac * scale
	}

	base := time.Date(0, 1, 1, hour, minute, second, nsec, time.UTC)
	end := addOneUnit(base, precision)

	return &TemporalInfo{
		Kind:           TemporalTime,
		Precision:      precision,
		Normalized:     raw,
		Start:          base,
		End:            end,
		IsPartial:      precision != PrecisionFraction,
		OriginalSource: raw,
		FractionDigits: fractionDigits,
	}, nil
}

func addOneUnit(t time.Time, precision TemporalPrecision) time.Time {
	switch precision {
	case PrecisionYear:
		return t.AddDate(1, 0, 0)
	case PrecisionMonth:
		return t.AddDate(0, 1, 0)
	case PrecisionDay:
		return t.AddDate(0, 0, 1)
	case PrecisionHour:
		return t.Add(time.Hour)
	case PrecisionMinute:
		return t.Add(time.Minute)
	case PrecisionSecond:
		return t.Add(time.Second)
	case PrecisionFraction:
		return t.Add(time.Microsecond)
	default:
		return t
	}
}
