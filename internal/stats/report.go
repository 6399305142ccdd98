package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/tuisplit/internal/model"
	"github.com/verte-zerg/tuisplit/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Attempts         []model.AttemptSummary
	WindowAttemptIDs []int64
	SegmentsAll      []model.SegmentAggregate
	SegmentsWindow   []model.SegmentAggregate
}

// BuildReport loads and prepares data for stats rendering. Window limits the
// attempts behind SegmentsWindow to the most recent ones.
func BuildReport(ctx context.Context, st *store.Store, filter model.AttemptFilter, window int) (Report, error) {
	attempts, err := st.ListAttempts(ctx, filter)
	if err != nil {
		return Report{}, err
	}

	allIDs := attemptIDs(attempts)
	windowIDs := lastAttemptIDs(attempts, window)
	segmentsAll, err := st.SegmentStatsForAttempts(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	segmentsWindow, err := st.SegmentStatsForAttempts(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Attempts:         attempts,
		WindowAttemptIDs: windowIDs,
		SegmentsAll:      segmentsAll,
		SegmentsWindow:   segmentsWindow,
	}, nil
}

const topTimesaves = 3

// Render writes the summary, trend, segment and attempt sections.
func (r Report) Render(w io.Writer, trendWindow, width int, useColor bool) error {
	if err := RenderSummary(w, r.Attempts); err != nil {
		return err
	}
	if len(r.Attempts) == 0 {
		return nil
	}
	if err := PlotTrend(w, r.Attempts, trendWindow, width, 0, useColor); err != nil {
		return err
	}
	if err := RenderSegmentTable(w, r.SegmentsWindow); err != nil {
		return err
	}
	if err := RenderTopTimesaves(w, r.SegmentsAll, topTimesaves); err != nil {
		return err
	}
	return RenderAttemptTable(w, r.Attempts)
}

func attemptIDs(attempts []model.AttemptSummary) []int64 {
	ids := make([]int64, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
	}
	return ids
}

func lastAttemptIDs(attempts []model.AttemptSummary, window int) []int64 {
	if window <= 0 || len(attempts) <= window {
		return attemptIDs(attempts)
	}
	return attemptIDs(attempts[len(attempts)-window:])
}
