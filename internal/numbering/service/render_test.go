package service

import (
	"testing"
	"time"

	"github.com/billora/billora/internal/numbering/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTokens(t *testing.T) {
	at := time.Date(2025, time.August, 14, 9, 30, 0, 0, time.UTC)

	cases := []struct {
		template string
		count    int64
		want     string
	}{
		{"INV-{yyyy}-{nnnn}", 0, "INV-2025-0001"},
		{"INV-{yyyy}-{nnnn}", 41, "INV-2025-0042"},
		{"CN-{n}", 9, "CN-10"},
		{"{yy}{mm}-{nnn}", 2, "2508-003"},
		{"Q{q}/{m}/{nn}", 0, "Q3/8/01"},
		{"DOC-{nnnnnn}", 123, "DOC-000124"},
		{"NOTOKENS", 5, "NOTOKENS"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Render(tc.template, tc.count, at), tc.template)
	}
}

func TestRenderSequenceWiderThanPadding(t *testing.T) {
	at := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-12345", Render("INV-{nnn}", 12344, at))
}

func TestRenderQuarters(t *testing.T) {
	for month, quarter := range map[time.Month]string{
		time.January: "1", time.March: "1",
		time.April: "2", time.June: "2",
		time.July: "3", time.September: "3",
		time.October: "4", time.December: "4",
	} {
		at := time.Date(2025, month, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, quarter, Render("{q}", 0, at), month.String())
	}
}

func TestCalculateBoundsNever(t *testing.T) {
	start, end := CalculateBounds(domain.ResetNever, time.Now())
	assert.Nil(t, start)
	assert.Nil(t, end)
}

func TestCalculateBoundsWeeklyStartsMonday(t *testing.T) {
	// 2025-08-14 is a Thursday; its week starts Monday 2025-08-11.
	now := time.Date(2025, time.August, 14, 15, 0, 0, 0, time.UTC)

	start, end := CalculateBounds(domain.ResetWeekly, now)
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, time.Date(2025, time.August, 11, 0, 0, 0, 0, time.UTC), *start)
	assert.Equal(t, time.Date(2025, time.August, 18, 0, 0, 0, 0, time.UTC), *end)

	// A Monday belongs to its own week, a Sunday to the previous one.
	monday := time.Date(2025, time.August, 11, 0, 0, 0, 0, time.UTC)
	start, _ = CalculateBounds(domain.ResetWeekly, monday)
	assert.Equal(t, monday, *start)

	sunday := time.Date(2025, time.August, 10, 23, 59, 0, 0, time.UTC)
	start, _ = CalculateBounds(domain.ResetWeekly, sunday)
	assert.Equal(t, time.Date(2025, time.August, 4, 0, 0, 0, 0, time.UTC), *start)
}

func TestCalculateBoundsMonthly(t *testing.T) {
	now := time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC)

	start, end := CalculateBounds(domain.ResetMonthly, now)
	assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), *start)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), *end)
}

func TestCalculateBoundsQuarterly(t *testing.T) {
	now := time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC)

	start, end := CalculateBounds(domain.ResetQuarterly, now)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), *start)
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), *end)
}

func TestCalculateBoundsYearly(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

	start, end := CalculateBounds(domain.ResetYearly, now)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), *start)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), *end)
}
