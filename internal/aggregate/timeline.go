// ABOUTME: Timeline composer merging every category into day buckets.
// ABOUTME: Buckets are sparse and strictly ordered by day in the requested direction.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/healthlog/internal/models"
)

// SortDirection orders timeline buckets by day.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

func (d SortDirection) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseSortDirection accepts asc/desc (and the long forms). Empty means desc,
// the usual dashboard order.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	default:
		return Descending, fmt.Errorf("invalid sort direction %q (use asc or desc)", s)
	}
}

// Entry is one category-tagged record inside a bucket.
type Entry struct {
	Category models.Category `json:"category"`
	Time     time.Time       `json:"time"`
	Record   models.Record   `json:"record"`
}

// Bucket holds every record whose day key is Date.
type Bucket struct {
	Date    models.Day `json:"date"`
	Entries []Entry    `json:"entries"`
}

// ComposeTimeline groups all records in snap by day. Every record lands in
// exactly one bucket. Days without records are omitted. Inside a bucket,
// entries follow category order, then snapshot order.
func ComposeTimeline(snap *models.Snapshot, dir SortDirection) []Bucket {
	buckets := []Bucket{}
	if snap == nil {
		return buckets
	}

	index := make(map[models.Day]int)
	for _, cat := range models.AllCategories {
		for _, r := range snap.Records(cat) {
			day := r.DayKey()
			i, ok := index[day]
			if !ok {
				i = len(buckets)
				index[day] = i
				buckets = append(buckets, Bucket{Date: day})
			}
			buckets[i].Entries = append(buckets[i].Entries, Entry{
				Category: cat,
				Time:     r.Timestamp(),
				Record:   r,
			})
		}
	}

	sort.Slice(buckets, func(i, j int) bool {
		if dir == Descending {
			return buckets[i].Date.After(buckets[j].Date)
		}
		return buckets[i].Date.Before(buckets[j].Date)
	})
	return buckets
}
