package admin

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/celerix-dev/swissqr/pkg/schema"
)

// DefaultLogLimit is the number of entries AccessLogs returns when no limit is set.
const DefaultLogLimit = 100

// AccessFilter narrows access log queries. Zero values match everything.
type AccessFilter struct {
	TokenID schema.TokenID
	Status  int
	After   time.Time // exclusive
	Before  time.Time // exclusive
	Limit   int
}

func (f AccessFilter) match(a schema.Access) bool {
	if f.TokenID != "" && a.TokenID != f.TokenID {
		return false
	}
	if f.Status != 0 && a.Status != f.Status {
		return false
	}
	if !f.After.IsZero() && a.Timestamp <= f.After.UnixMilli() {
		return false
	}
	if !f.Before.IsZero() && a.Timestamp >= f.Before.UnixMilli() {
		return false
	}
	return true
}

// AccessLogs returns the most recent entries matching f, oldest first.
func (s *Service) AccessLogs(f AccessFilter) []schema.Access {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	var out []schema.Access
	for _, a := range s.logs.All() {
		if f.match(a) {
			out = append(out, a)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// AccessSummary counts the accesses of one token.
type AccessSummary struct {
	TokenID  schema.TokenID `json:"tokenId"`
	Accesses int            `json:"accesses"`
}

// SummarizeAccess counts matching entries per token, busiest first. The limit
// of f is ignored.
func (s *Service) SummarizeAccess(f AccessFilter) []AccessSummary {
	counts := make(map[schema.TokenID]int)
	for _, a := range s.logs.All() {
		if f.match(a) {
			counts[a.TokenID]++
		}
	}

	out := make([]AccessSummary, 0, len(counts))
	for id, n := range counts {
		out = append(out, AccessSummary{TokenID: id, Accesses: n})
	}
	slices.SortFunc(out, func(a, b AccessSummary) int {
		if c := cmp.Compare(b.Accesses, a.Accesses); c != 0 {
			return c
		}
		return cmp.Compare(a.TokenID, b.TokenID)
	})
	return out
}

// ExportAccessCSV writes entries as CSV with a header row.
func ExportAccessCSV(w io.Writer, entries []schema.Access) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"tokenId", "source", "path", "method", "status", "timestamp"}); err != nil {
		return err
	}
	for _, a := range entries {
		err := cw.Write([]string{
			string(a.TokenID),
			a.IP,
			a.Path,
			a.Method,
			strconv.Itoa(a.Status),
			strconv.FormatInt(a.Timestamp, 10),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write access log: %w", err)
	}
	return nil
}

// ExportSummaryCSV writes a summary as CSV with a header row.
func ExportSummaryCSV(w io.Writer, summary []AccessSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"tokenId", "accesses"}); err != nil {
		return err
	}
	for _, s := range summary {
		if err := cw.Write([]string{string(s.TokenID), strconv.Itoa(s.Accesses)}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// DateLayout is the layout of date filters, e.g. 2024-03-01.
const DateLayout = "2006-01-02"

// ParseDate parses a date filter as midnight UTC. An empty string yields the
// zero time, which matches everything.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
