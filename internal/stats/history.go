package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/tuisplit/internal/durfmt"
	"github.com/verte-zerg/tuisplit/internal/model"
)

// RenderRunHistory prints the history kept inside a run document: the split
// table with current PB and gold, the attempt log and the PB log.
func RenderRunHistory(w io.Writer, run model.Run) error {
	header := fmt.Sprintf("%s (%s), %d attempts", run.Title, run.Category, run.Attempts)
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	if err := renderSplitHistory(w, run.Splits); err != nil {
		return err
	}
	if err := renderAttemptLog(w, "Attempt History", run.AttemptHistory); err != nil {
		return err
	}
	return renderAttemptLog(w, "PB History", run.PBHistory)
}

func renderSplitHistory(w io.Writer, splits []model.Split) error {
	headers := []string{"Split", "PB", "Gold", "Golds", "PBs"}
	rows := make([][]string, 0, len(splits)+1)
	var sob time.Duration
	for _, sp := range splits {
		sob += sp.GoldTime.Or(0)
		rows = append(rows, []string{
			sp.Name,
			formatOptional(sp.PBTime),
			formatOptional(sp.GoldTime),
			fmt.Sprintf("%d", len(sp.GoldHistory)),
			fmt.Sprintf("%d", len(sp.PBHistory)),
		})
	}
	rows = append(rows, []string{"Sum of Best", "", durfmt.Format(sob, durfmt.SignNegative), "", ""})
	return writeTable(w, "Splits", headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})
}

func renderAttemptLog(w io.Writer, title string, entries []model.AttemptHistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintf(w, "%s: none\n\n", title)
		return err
	}
	headers := []string{"#", "Date", "Time", "Finished"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		date := "-"
		if e.Date != nil {
			date = e.Date.Local().Format("2006-01-02 15:04")
		}
		finished := "no"
		if e.Ended {
			finished = "yes"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.RunIndex),
			date,
			formatOptional(e.TotalTime),
			finished,
		})
	}
	return writeTable(w, title, headers, rows, map[int]bool{0: true, 2: true})
}

func formatOptional(d model.Duration) string {
	v, ok := d.Get()
	if !ok {
		return durfmt.Placeholder
	}
	return durfmt.Format(v, durfmt.SignNegative)
}

// RenderRunList prints the runs known to the archive, most recent first.
func RenderRunList(w io.Writer, runs []model.RunSummary) error {
	headers := []string{"Run", "Title", "Category", "Attempts", "Finished", "Last"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunKey,
			r.Title,
			r.Category,
			fmt.Sprintf("%d", r.Attempts),
			fmt.Sprintf("%d", r.Completed),
			fmt.Sprintf("%s (%s)", r.LastEnded.Local().Format("2006-01-02 15:04"), humanize.Time(r.LastEnded)),
		})
	}
	return writeTable(w, "Runs", headers, rows, map[int]bool{3: true, 4: true})
}
