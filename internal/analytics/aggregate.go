// Package analytics derives the dashboard views from the chat
// turn log: dense daily and hourly volume series, unique-client
// distribution by phone area code, and summary stats, all
// bucketed in the fixed dashboard timezone.
package analytics

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"zapview/internal/db"
	"zapview/internal/timeutil"
)

// Period selects the trailing analytics window.
type Period string

const (
	Period7d  Period = "7d"
	Period30d Period = "30d"
)

// ParsePeriod maps a query string value to a Period, defaulting
// to 7d for anything unrecognized.
func ParsePeriod(s string) Period {
	if Period(s) == Period30d {
		return Period30d
	}
	return Period7d
}

// Days returns the window length in days.
func (p Period) Days() int {
	if p == Period30d {
		return 30
	}
	return 7
}

// DatePoint is one bucket of the daily volume series.
type DatePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// HourPoint is one bucket of the hour-of-day volume series.
type HourPoint struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// PrefixBucket is the unique-session count for one phone area
// code prefix.
type PrefixBucket struct {
	Prefix string `json:"prefix"`
	Count  int    `json:"count"`
}

// Stats is the dashboard summary for a period. Total is a row
// count, not a session count; the field name is a label the
// frontend has always used.
type Stats struct {
	TotalConversations   int       `json:"total_conversations"`
	UniqueSessions       int       `json:"unique_sessions"`
	LastConversationTime time.Time `json:"last_conversation_time"`
}

// UnknownPrefix buckets session ids that do not look like a
// Brazilian phone number.
const UnknownPrefix = "unknown"

// areaCodeRe matches the country code 55 followed by a two-digit
// area code at the start of a session id.
var areaCodeRe = regexp.MustCompile(`^55(\d{2})`)

// DailySeries buckets rows by local calendar day over [from, to].
// The series is dense: every day in the window appears exactly
// once, in ascending date order, zero-filled. Rows outside the
// window or without a valid timestamp are ignored.
func DailySeries(clock *timeutil.Clock, rows []db.Turn, from, to time.Time) []DatePoint {
	counts := make(map[string]int)
	var series []DatePoint

	endDate := clock.LocalDate(to)
	for d := from.In(clock.Location()); clock.LocalDate(d) <= endDate; d = d.AddDate(0, 0, 1) {
		label := clock.LocalDate(d)
		counts[label] = 0
		series = append(series, DatePoint{Date: label})
	}

	for _, row := range rows {
		if !inRange(row, from, to) {
			continue
		}
		label := clock.LocalDate(row.CreatedAt)
		if _, ok := counts[label]; ok {
			counts[label]++
		}
	}

	for i := range series {
		series[i].Count = counts[series[i].Date]
	}
	return series
}

// HourlySeries buckets rows by local hour of day. Always returns
// exactly 24 buckets, "00" through "23", zero-filled.
func HourlySeries(clock *timeutil.Clock, rows []db.Turn, from, to time.Time) []HourPoint {
	counts := make([]int, 24)
	for _, row := range rows {
		if !inRange(row, from, to) {
			continue
		}
		counts[clock.LocalHour(row.CreatedAt)]++
	}

	series := make([]HourPoint, 24)
	for h := 0; h < 24; h++ {
		series[h] = HourPoint{
			Hour:  fmt.Sprintf("%02d", h),
			Count: counts[h],
		}
	}
	return series
}

// AreaCodes counts distinct session ids per area code prefix.
// A session with many rows counts once. Buckets are sorted by
// unique count descending; ties keep first-appearance order.
func AreaCodes(rows []db.Turn) []PrefixBucket {
	sessions := make(map[string]map[string]struct{})
	var order []string

	for _, row := range rows {
		if row.CreatedAt.IsZero() {
			continue
		}
		prefix := UnknownPrefix
		if m := areaCodeRe.FindStringSubmatch(row.SessionID); m != nil {
			prefix = m[1]
		}
		set, ok := sessions[prefix]
		if !ok {
			set = make(map[string]struct{})
			sessions[prefix] = set
			order = append(order, prefix)
		}
		set[row.SessionID] = struct{}{}
	}

	buckets := make([]PrefixBucket, 0, len(order))
	for _, prefix := range order {
		buckets = append(buckets, PrefixBucket{
			Prefix: prefix,
			Count:  len(sessions[prefix]),
		})
	}
	// Stable sort keeps the first-appearance order of ties.
	sort.SliceStable(buckets, func(a, b int) bool {
		return buckets[a].Count > buckets[b].Count
	})
	return buckets
}

// Summarize computes the period stats from in-range rows. An
// empty range reports now as the last conversation time so the
// dashboard tile never shows a zero date.
func Summarize(clock *timeutil.Clock, rows []db.Turn) Stats {
	s := Stats{}
	seen := make(map[string]struct{})
	for _, row := range rows {
		if row.CreatedAt.IsZero() {
			continue
		}
		s.TotalConversations++
		seen[row.SessionID] = struct{}{}
		if row.CreatedAt.After(s.LastConversationTime) {
			s.LastConversationTime = row.CreatedAt
		}
	}
	s.UniqueSessions = len(seen)
	if s.LastConversationTime.IsZero() {
		s.LastConversationTime = clock.Now()
	}
	return s
}

func inRange(row db.Turn, from, to time.Time) bool {
	if row.CreatedAt.IsZero() {
		return false
	}
	return !row.CreatedAt.Before(from) && !row.CreatedAt.After(to)
}
