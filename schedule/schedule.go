// Package schedule aggregates upload performance by day of week and hour.
package schedule

import (
	"sort"
	"time"

	"ytinsight/videos"
)

const (
	Days  = 7
	Hours = 24

	// SlotCount is how many best and worst slots are reported.
	SlotCount = 3
)

// Cell is one day/hour bucket. Day 0 is Sunday.
type Cell struct {
	Day        int     `json:"day"`
	Hour       int     `json:"hour"`
	Count      int     `json:"count"`
	TotalViews int64   `json:"total_views"`
	AvgViews   float64 `json:"avg_views"`
}

// Heatmap is a dense 7x24 grid indexed [day][hour].
type Heatmap struct {
	Cells [Days][Hours]Cell `json:"cells"`
	// Location the publish times were bucketed in.
	Location string `json:"location"`
}

// Build buckets records by the weekday and hour of their publish time in loc.
// Records without a publish time are skipped. A nil loc means UTC.
func Build(records []videos.Record, loc *time.Location) *Heatmap {
	if loc == nil {
		loc = time.UTC
	}
	h := &Heatmap{Location: loc.String()}
	for d := 0; d < Days; d++ {
		for hr := 0; hr < Hours; hr++ {
			h.Cells[d][hr] = Cell{Day: d, Hour: hr}
		}
	}

	for _, r := range records {
		if !r.HasPublishTime() {
			continue
		}
		t := r.PublishedAt.In(loc)
		c := &h.Cells[int(t.Weekday())][t.Hour()]
		c.Count++
		c.TotalViews += r.Views
	}

	for d := range h.Cells {
		for hr := range h.Cells[d] {
			if c := &h.Cells[d][hr]; c.Count > 0 {
				c.AvgViews = float64(c.TotalViews) / float64(c.Count)
			}
		}
	}
	return h
}

// Total is the number of bucketed videos.
func (h *Heatmap) Total() int {
	n := 0
	for d := range h.Cells {
		for hr := range h.Cells[d] {
			n += h.Cells[d][hr].Count
		}
	}
	return n
}

// Ranked returns the non-empty cells by descending average views. Equal
// averages keep grid order.
func (h *Heatmap) Ranked() []Cell {
	var cells []Cell
	for d := range h.Cells {
		for hr := range h.Cells[d] {
			if h.Cells[d][hr].Count > 0 {
				cells = append(cells, h.Cells[d][hr])
			}
		}
	}
	sort.SliceStable(cells, func(i, j int) bool {
		return cells[i].AvgViews > cells[j].AvgViews
	})
	return cells
}

// BestSlots returns the first SlotCount ranked cells.
func (h *Heatmap) BestSlots() []Cell {
	ranked := h.Ranked()
	return ranked[:min(SlotCount, len(ranked))]
}

// WorstSlots returns the last SlotCount ranked cells, still in ranked order.
func (h *Heatmap) WorstSlots() []Cell {
	ranked := h.Ranked()
	return ranked[max(0, len(ranked)-SlotCount):]
}

// DayName returns the English weekday name of day.
func DayName(day int) string {
	return time.Weekday(day).String()
}
