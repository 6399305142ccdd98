// Package stats contains attempt statistics and text reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/tuisplit/internal/durfmt"
	"github.com/verte-zerg/tuisplit/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary condenses a list of archived attempts.
type Summary struct {
	Attempts       int
	Completed      int
	PersonalBests  int
	Best           time.Duration
	Average        time.Duration
	CompletionRate float64
}

// Summarize computes totals over attempts. Best and Average only consider
// completed attempts.
func Summarize(attempts []model.AttemptSummary) Summary {
	sum := Summary{Attempts: len(attempts)}
	var total time.Duration
	for _, a := range attempts {
		if a.PersonalBest {
			sum.PersonalBests++
		}
		if !a.Completed || a.TotalMs == nil {
			continue
		}
		d := time.Duration(*a.TotalMs) * time.Millisecond
		if sum.Completed == 0 || d < sum.Best {
			sum.Best = d
		}
		total += d
		sum.Completed++
	}
	if sum.Completed > 0 {
		sum.Average = total / time.Duration(sum.Completed)
	}
	if sum.Attempts > 0 {
		sum.CompletionRate = float64(sum.Completed) / float64(sum.Attempts)
	}
	return sum
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// CompletedSeconds returns the totals of completed attempts in seconds, in
// order.
func CompletedSeconds(attempts []model.AttemptSummary) []float64 {
	var out []float64
	for _, a := range attempts {
		if a.Completed && a.TotalMs != nil {
			out = append(out, float64(*a.TotalMs)/1000)
		}
	}
	return out
}

// RenderSummary prints a summary block for attempts.
func RenderSummary(w io.Writer, attempts []model.AttemptSummary) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	sum := Summarize(attempts)
	lines := []string{
		"Summary",
		fmt.Sprintf("Attempts: %d", sum.Attempts),
		fmt.Sprintf("Completed: %d (%.1f%%)", sum.Completed, sum.CompletionRate*100),
		fmt.Sprintf("Personal bests: %d", sum.PersonalBests),
	}
	if sum.Completed > 0 {
		lines = append(lines,
			"Best: "+durfmt.FormatLong(sum.Best),
			"Average: "+durfmt.FormatLong(sum.Average),
		)
		if spark := Sparkline(CompletedSeconds(attempts)); len(spark) > 1 {
			lines = append(lines, "Trend: "+spark)
		}
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderAttemptTable lists attempts one per row.
func RenderAttemptTable(w io.Writer, attempts []model.AttemptSummary) error {
	if len(attempts) == 0 {
		return nil
	}
	headers := []string{"#", "Ended", "Time", "Status"}
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		total := durfmt.Placeholder
		if a.TotalMs != nil {
			total = durfmt.FormatLong(time.Duration(*a.TotalMs) * time.Millisecond)
		}
		status := "reset"
		switch {
		case a.PersonalBest:
			status = "PB"
		case a.Completed:
			status = "finished"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", a.AttemptIndex),
			a.EndedAt.Local().Format("2006-01-02 15:04"),
			total,
			status,
		})
	}
	return writeTable(w, "Attempts", headers, rows, map[int]bool{0: true, 2: true})
}

// RenderSegmentTable prints per-split segment aggregates with the possible
// time save of each split.
func RenderSegmentTable(w io.Writer, aggs []model.SegmentAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No segment stats found.")
		return err
	}
	headers := []string{"Split", "Runs", "Best", "Average", "Timesave"}
	rows := make([][]string, 0, len(aggs))
	for _, agg := range aggs {
		rows = append(rows, []string{
			agg.Name,
			fmt.Sprintf("%d", agg.Count),
			durfmt.Format(millis(agg.BestMs), durfmt.SignNegative),
			durfmt.Format(averageSegment(agg), durfmt.SignNegative),
			durfmt.Format(timesave(agg), durfmt.SignNone),
		})
	}
	return writeTable(w, "Segments", headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})
}

func averageSegment(agg model.SegmentAggregate) time.Duration {
	if agg.Count == 0 {
		return 0
	}
	return millis(agg.SumMs / int64(agg.Count))
}

// timesave is how far the average segment sits above the best one.
func timesave(agg model.SegmentAggregate) time.Duration {
	return max(averageSegment(agg)-millis(agg.BestMs), 0)
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
