package session

import (
	"time"

	"github.com/verte-zerg/tuisplit/internal/model"
	"github.com/verte-zerg/tuisplit/internal/timer"
)

// liveDeltaWindow hides the live delta until the segment is this close to
// its comparison.
const liveDeltaWindow = 5 * time.Second

// SumOfBest adds every gold segment; missing golds count as zero.
func SumOfBest(splits []model.Split) time.Duration {
	var total time.Duration
	for _, sp := range splits {
		total += sp.GoldTime.Or(0)
	}
	return total
}

// BestPossible is the time at the last recorded split plus the golds of the
// splits still ahead.
func BestPossible(display, splits []model.Split, current int) time.Duration {
	var elapsed time.Duration
	if current > 0 && current-1 < len(display) {
		elapsed = display[current-1].LastTime.Or(0)
	}
	if current < len(splits) {
		elapsed += SumOfBest(splits[current:])
	}
	return elapsed
}

// PBTotal sums the PB segments. It is unset unless every split has one.
func PBTotal(splits []model.Split) model.Duration {
	if len(splits) == 0 {
		return model.None()
	}
	var total time.Duration
	for _, sp := range splits {
		pb, ok := sp.PBTime.Get()
		if !ok {
			return model.None()
		}
		total += pb
	}
	return model.Some(total)
}

// CumulativePB returns the PB time at each split, measured from the run
// start. Entries after the first missing PB segment are unset.
func CumulativePB(splits []model.Split) []model.Duration {
	out := make([]model.Duration, len(splits))
	var total time.Duration
	for i, sp := range splits {
		pb, ok := sp.PBTime.Get()
		if !ok {
			break
		}
		total += pb
		out[i] = model.Some(total)
	}
	return out
}

// Row is one visible split in a Snapshot.
type Row struct {
	Index   int
	Name    string
	Icon    string
	Current bool
	// Time is the recorded cumulative time.
	Time model.Duration
	// Segment is the recorded segment, or the running one for the current split.
	Segment model.Duration
	Live    bool
	// Delta is Segment minus the comparison (gold or PB segment).
	Delta model.Duration
	// PB is the cumulative personal best time at this split.
	PB model.Duration
}

// Snapshot is a consistent read-only view of the session for rendering.
type Snapshot struct {
	Title         string
	Category      string
	State         timer.State
	Time          time.Duration
	Attempts      int
	GoldMode      bool
	ShowHelp      bool
	CurrentSplit  int
	SplitCount    int
	Page          int
	PageCount     int
	Rows          []Row
	SumOfBest     time.Duration
	BestPossible  time.Duration
	PersonalBest  model.Duration
	GoldsImproved int
}

// Snapshot captures the session for a single frame.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timer.CurrentTime()
	snap := Snapshot{
		Title:         s.run.Title,
		Category:      s.run.Category,
		State:         s.timer.State(),
		Time:          now,
		Attempts:      s.run.Attempts,
		GoldMode:      s.run.GoldSplit,
		ShowHelp:      s.showHelp,
		CurrentSplit:  s.currentSplit,
		SplitCount:    len(s.run.Splits),
		Page:          s.currentPage,
		PageCount:     s.pageCount(),
		SumOfBest:     SumOfBest(s.run.Splits),
		BestPossible:  BestPossible(s.display, s.run.Splits, s.currentSplit),
		PersonalBest:  PBTotal(s.run.Splits),
		GoldsImproved: s.goldsImproved(),
	}

	per := s.run.PerPage()
	start := s.currentPage * per
	end := min(start+per, len(s.display))
	segments := Segments(s.display)
	pbs := CumulativePB(s.run.Splits)
	for i := start; i < end; i++ {
		sp := s.display[i]
		row := Row{
			Index:   i,
			Name:    sp.Name,
			Current: i == s.currentSplit,
			Time:    sp.LastTime,
			Segment: segments[i],
		}
		if i < len(pbs) {
			row.PB = pbs[i]
		}
		if sp.IconPath != nil {
			row.Icon = *sp.IconPath
		}
		comparison := s.comparison(sp)
		if seg, ok := segments[i].Get(); ok {
			if cmp, ok := comparison.Get(); ok {
				diff := seg - cmp
				if !s.run.GoldSplit || diff != 0 {
					row.Delta = model.Some(diff)
				}
			}
		} else if row.Current && snap.State == timer.Running && now >= 0 {
			var prev time.Duration
			if i > 0 {
				prev = s.display[i-1].LastTime.Or(0)
			}
			live := now - prev
			row.Segment = model.Some(live)
			row.Live = true
			if cmp, ok := comparison.Get(); ok && live-cmp >= -liveDeltaWindow {
				row.Delta = model.Some(live - cmp)
			}
		}
		snap.Rows = append(snap.Rows, row)
	}
	return snap
}

// comparison returns the segment a split is measured against. Non-positive
// comparisons are treated as absent.
func (s *Session) comparison(sp model.Split) model.Duration {
	cmp := sp.PBTime
	if s.run.GoldSplit {
		cmp = sp.GoldTime
	}
	if v, ok := cmp.Get(); !ok || v <= 0 {
		return model.None()
	}
	return cmp
}

// goldsImproved counts splits whose gold beats the attempt-start backup.
func (s *Session) goldsImproved() int {
	count := 0
	for i, sp := range s.run.Splits {
		if i >= len(s.backup) {
			break
		}
		gold, ok := sp.GoldTime.Get()
		if !ok {
			continue
		}
		if prev, had := s.backup[i].GoldTime.Get(); !had || gold < prev {
			count++
		}
	}
	return count
}
