package model

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"
)

// DefaultSplitsPerPage is used when a run does not set splits_per_page.
const DefaultSplitsPerPage = 5

// ErrNoSplits is returned when an operation needs at least one split.
var ErrNoSplits = errors.New("run has no splits")

// SegmentHistoryEntry records a per-split value set by one attempt.
type SegmentHistoryEntry struct {
	RunIndex int      `json:"run_index"`
	Time     Duration `json:"time"`
}

// AttemptHistoryEntry records one finished or abandoned attempt.
type AttemptHistoryEntry struct {
	RunIndex   int        `json:"run_index"`
	TotalTime  Duration   `json:"total_time"`
	IngameTime Duration   `json:"ingame_time"`
	Ended      bool       `json:"ended"`
	Date       *time.Time `json:"date"`
}

// Split is one checkpoint of a run.
//
// LastTime is cumulative from the run start. PBTime and GoldTime are segment
// durations measured from the previous split.
type Split struct {
	Name        string                `json:"name"`
	PBTime      Duration              `json:"pb_time"`
	LastTime    Duration              `json:"last_time"`
	GoldTime    Duration              `json:"gold_time"`
	IconPath    *string               `json:"icon_path"`
	GoldHistory []SegmentHistoryEntry `json:"gold_history"`
	PBHistory   []SegmentHistoryEntry `json:"pb_history"`
}

// Run describes a speedrun category and its recorded times.
type Run struct {
	Title          string                `json:"title"`
	Category       string                `json:"category"`
	Attempts       int                   `json:"attempts"`
	Splits         []Split               `json:"splits"`
	StartOffset    *int64                `json:"start_offset"`
	SplitsPerPage  *int                  `json:"splits_per_page"`
	AutoUpdatePB   bool                  `json:"auto_update_pb"`
	GoldSplit      bool                  `json:"gold_split"`
	AttemptHistory []AttemptHistoryEntry `json:"attempt_history"`
	PBHistory      []AttemptHistoryEntry `json:"pb_history"`
}

// NewSplit returns an empty split with the given name.
func NewSplit(name string) Split {
	return Split{
		Name:        name,
		GoldHistory: []SegmentHistoryEntry{},
		PBHistory:   []SegmentHistoryEntry{},
	}
}

// NewRun builds a run with empty times for the given split names.
// A blank final split name is replaced with "Final Boss".
func NewRun(title, category string, names []string) Run {
	splits := make([]Split, 0, len(names))
	for _, name := range names {
		splits = append(splits, NewSplit(name))
	}
	if n := len(splits); n > 0 && strings.TrimSpace(splits[n-1].Name) == "" {
		splits[n-1].Name = "Final Boss"
	}
	perPage := DefaultSplitsPerPage
	return Run{
		Title:          title,
		Category:       category,
		Splits:         splits,
		SplitsPerPage:  &perPage,
		AutoUpdatePB:   true,
		GoldSplit:      true,
		AttemptHistory: []AttemptHistoryEntry{},
		PBHistory:      []AttemptHistoryEntry{},
	}
}

// DefaultRun is used when no run document can be loaded.
func DefaultRun() Run {
	return NewRun("Untitled", "Any%", []string{"Split 1", "Split 2", "Final Split"})
}

// SampleRun is written on first start so there is something to run against.
func SampleRun() Run {
	return NewRun("Sample Game", "Any%", []string{"Intro", "Level 1", "Level 2", "Final Boss"})
}

// Offset returns the configured pre-roll, zero when unset.
func (r Run) Offset() time.Duration {
	if r.StartOffset == nil {
		return 0
	}
	return time.Duration(*r.StartOffset) * time.Millisecond
}

// PerPage returns the page size, falling back to DefaultSplitsPerPage.
func (r Run) PerPage() int {
	if r.SplitsPerPage == nil || *r.SplitsPerPage <= 0 {
		return DefaultSplitsPerPage
	}
	return *r.SplitsPerPage
}

// Clone returns a deep copy of the run.
func (r Run) Clone() Run {
	out := r
	out.Splits = CloneSplits(r.Splits)
	if r.StartOffset != nil {
		v := *r.StartOffset
		out.StartOffset = &v
	}
	if r.SplitsPerPage != nil {
		v := *r.SplitsPerPage
		out.SplitsPerPage = &v
	}
	out.AttemptHistory = cloneAttempts(r.AttemptHistory)
	out.PBHistory = cloneAttempts(r.PBHistory)
	return out
}

// ClearLastTimes drops in-progress times from every split.
func (r *Run) ClearLastTimes() {
	for i := range r.Splits {
		r.Splits[i].LastTime = None()
	}
}

// ClearHistory empties attempt, PB and per-split histories and resets the
// attempt counter.
func (r *Run) ClearHistory() {
	r.AttemptHistory = []AttemptHistoryEntry{}
	r.PBHistory = []AttemptHistoryEntry{}
	r.Attempts = 0
	for i := range r.Splits {
		r.Splits[i].GoldHistory = []SegmentHistoryEntry{}
		r.Splits[i].PBHistory = []SegmentHistoryEntry{}
	}
}

// Clone returns a deep copy of the split.
func (s Split) Clone() Split {
	out := s
	if s.IconPath != nil {
		v := *s.IconPath
		out.IconPath = &v
	}
	out.GoldHistory = slices.Clone(s.GoldHistory)
	out.PBHistory = slices.Clone(s.PBHistory)
	return out
}

// CloneSplits deep-copies a split slice, preserving nil.
func CloneSplits(splits []Split) []Split {
	if splits == nil {
		return nil
	}
	out := make([]Split, len(splits))
	for i, s := range splits {
		out[i] = s.Clone()
	}
	return out
}

func cloneAttempts(entries []AttemptHistoryEntry) []AttemptHistoryEntry {
	if entries == nil {
		return nil
	}
	out := make([]AttemptHistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = e
		if e.Date != nil {
			d := *e.Date
			out[i].Date = &d
		}
	}
	return out
}

// UnmarshalJSON fills fields missing from the document with defaults.
func (r *Run) UnmarshalJSON(data []byte) error {
	type plain Run
	def := NewRun("New Run", "Category", nil)
	def.Splits = nil
	p := plain(def)
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	out := Run(p)
	if out.Splits == nil {
		out.Splits = NewRun("", "", []string{"Split 1", "Split 2"}).Splits
	}
	if out.AttemptHistory == nil {
		out.AttemptHistory = []AttemptHistoryEntry{}
	}
	if out.PBHistory == nil {
		out.PBHistory = []AttemptHistoryEntry{}
	}
	*r = out
	return nil
}

// UnmarshalJSON fills fields missing from the document with defaults.
func (s *Split) UnmarshalJSON(data []byte) error {
	type plain Split
	p := plain{Name: "New Split"}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	out := Split(p)
	if out.GoldHistory == nil {
		out.GoldHistory = []SegmentHistoryEntry{}
	}
	if out.PBHistory == nil {
		out.PBHistory = []SegmentHistoryEntry{}
	}
	*s = out
	return nil
}
