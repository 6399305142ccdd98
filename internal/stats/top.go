package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/verte-zerg/tuisplit/internal/durfmt"
	"github.com/verte-zerg/tuisplit/internal/model"
)

// TopTimesaves returns the n splits with the largest gap between their
// average and best segment.
func TopTimesaves(aggs []model.SegmentAggregate, n int) []model.SegmentAggregate {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	items := make([]model.SegmentAggregate, len(aggs))
	copy(items, aggs)
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := timesave(items[i]), timesave(items[j])
		if ti == tj {
			return items[i].SplitIndex < items[j].SplitIndex
		}
		return ti > tj
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}

// RenderTopTimesaves lists the n splits with the most time to gain. Splits
// already at their best are left out.
func RenderTopTimesaves(w io.Writer, aggs []model.SegmentAggregate, n int) error {
	top := TopTimesaves(aggs, n)
	parts := make([]string, 0, len(top))
	for _, agg := range top {
		ts := timesave(agg)
		if ts <= 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", agg.Name, durfmt.Format(ts, durfmt.SignNone)))
	}
	if len(parts) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "Timesaves: %s\n\n", strings.Join(parts, ", "))
	return err
}
