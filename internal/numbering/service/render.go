package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/billora/billora/internal/numbering/domain"
)

var sequenceToken = regexp.MustCompile(`\{n+\}`)

// Render expands a number template using effectiveAt's calendar fields and
// the 0-based sequence count. Date tokens: {yyyy} {yy} {q} {mm} {m}.
// Sequence token: {n..n}, printed as count+1 zero-padded to the token
// width, so the first document in a window renders as 1.
func Render(template string, count int64, effectiveAt time.Time) string {
	t := effectiveAt.UTC()
	quarter := (int(t.Month())-1)/3 + 1

	out := strings.NewReplacer(
		"{yyyy}", fmt.Sprintf("%04d", t.Year()),
		"{yy}", fmt.Sprintf("%02d", t.Year()%100),
		"{mm}", fmt.Sprintf("%02d", int(t.Month())),
		"{m}", strconv.Itoa(int(t.Month())),
		"{q}", strconv.Itoa(quarter),
	).Replace(template)

	return sequenceToken.ReplaceAllStringFunc(out, func(tok string) string {
		width := len(tok) - 2
		return fmt.Sprintf("%0*d", width, count+1)
	})
}

// CalculateBounds returns the half-open [start, end) window containing now
// for the given reset interval, in UTC. Never has no window: both bounds
// are nil. Weeks start on Monday; month, quarter and year windows follow
// the calendar, not rolling periods.
func CalculateBounds(interval domain.ResetInterval, now time.Time) (start, end *time.Time) {
	t := now.UTC()

	switch interval {
	case domain.ResetWeekly:
		// time.Weekday counts Sunday as 0; shift so Monday is day 0.
		offset := (int(t.Weekday()) + 6) % 7
		s := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
		e := s.AddDate(0, 0, 7)
		return &s, &e
	case domain.ResetMonthly:
		s := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		e := s.AddDate(0, 1, 0)
		return &s, &e
	case domain.ResetQuarterly:
		firstMonth := time.Month((int(t.Month())-1)/3*3 + 1)
		s := time.Date(t.Year(), firstMonth, 1, 0, 0, 0, 0, time.UTC)
		e := s.AddDate(0, 3, 0)
		return &s, &e
	case domain.ResetYearly:
		s := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		e := s.AddDate(1, 0, 0)
		return &s, &e
	default:
		return nil, nil
	}
}
