// Package orderid generates human-readable order identifiers of the form
// prefix + date code + zero-padded running number.
package orderid

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xenking/warishayday/internal/domain/shop"
)

// DateCode returns the two-digit month and two-digit year of now in the
// order selected by format.
func DateCode(format shop.DateFormat, now time.Time) string {
	mm := fmt.Sprintf("%02d", int(now.Month()))
	yy := fmt.Sprintf("%02d", now.Year()%100)
	if format == shop.DateYYMM {
		return yy + mm
	}
	return mm + yy
}

// Next issues the id following s at now and returns the settings to persist
// with it. The running number restarts at 1 whenever the date code changes.
// Padding is a minimum width, so numbers wider than RunDigits are kept whole.
func Next(s shop.OrderSettings, now time.Time) (string, shop.OrderSettings) {
	code := DateCode(s.DateFormat, now)
	if code != s.CurrentDateCode {
		s.CurrentDateCode = code
		s.LastRunNumber = 0
	}
	s.LastRunNumber++

	digits := s.RunDigits
	if digits < 1 {
		digits = 1
	}
	return fmt.Sprintf("%s%s%0*d", s.Prefix, code, digits, s.LastRunNumber), s
}

// Observe returns s advanced past an id that already exists, so Next never
// issues it again. An id from the counter's period raises LastRunNumber; an
// id from a later period moves the counter into that period. Ids with
// another prefix, from an earlier period or not shaped like an issued id
// leave s unchanged.
func Observe(s shop.OrderSettings, id string) shop.OrderSettings {
	rest, ok := strings.CutPrefix(id, s.Prefix)
	if !ok || len(rest) <= codeLen {
		return s
	}
	code, digits := rest[:codeLen], rest[codeLen:]
	run, ok := parseRun(digits)
	if !ok {
		return s
	}
	p, ok := period(s.DateFormat, code)
	if !ok {
		return s
	}

	cur, curOK := period(s.DateFormat, s.CurrentDateCode)
	switch {
	case !curOK || p > cur:
		s.CurrentDateCode = code
		s.LastRunNumber = run
	case p == cur && run > s.LastRunNumber:
		s.LastRunNumber = run
	}
	return s
}

const codeLen = 4

func parseRun(digits string) (int, bool) {
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	return n, err == nil
}

// period maps a date code to a month count that orders chronologically.
func period(format shop.DateFormat, code string) (int, bool) {
	if len(code) != codeLen {
		return 0, false
	}
	mm, yy := code[:2], code[2:]
	if format == shop.DateYYMM {
		yy, mm = code[:2], code[2:]
	}
	month, ok := parseRun(mm)
	if !ok || month < 1 || month > 12 {
		return 0, false
	}
	year, ok := parseRun(yy)
	if !ok {
		return 0, false
	}
	return year*12 + month - 1, true
}
