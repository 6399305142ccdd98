// Package session implements the attempt state machine: it drives the timer,
// records splits, reconciles golds and personal bests, and supports undo.
//
// A Session is safe for concurrent use. Every operation runs to completion
// under one mutex, so UI input and command listeners may call it freely.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/verte-zerg/tuisplit/internal/model"
	"github.com/verte-zerg/tuisplit/internal/timer"
)

// ErrAttemptInProgress is returned by operations that need an idle timer.
var ErrAttemptInProgress = errors.New("attempt in progress")

const defaultArchiveTimeout = 2 * time.Second

// Repository loads and saves the persisted run document.
type Repository interface {
	Load() (model.Run, error)
	Save(run model.Run) error
}

// Options configures optional collaborators of a Session.
type Options struct {
	// Clock drives the timer and history dates. Nil uses timer.SystemClock.
	Clock timer.Clock
	// Archive receives every ended attempt. Nil disables archiving.
	Archive Archive
	// RunKey identifies the run in the archive.
	RunKey string
	// ArchiveTimeout bounds a single archive write.
	ArchiveTimeout time.Duration
	Logger         *slog.Logger
	// ReloadRepository resolves the currently configured run and its archive
	// key on reload. Nil keeps the repository passed to New.
	ReloadRepository func() (Repository, string, error)
	// ShowHelp is the initial help visibility.
	ShowHelp bool
	// ReloadTheme re-reads display settings. It is called with the session
	// lock held and must not call back into the session.
	ReloadTheme func() error
}

// Session is the live controller for one run.
type Session struct {
	mu sync.Mutex

	repo   Repository
	clock  timer.Clock
	timer  *timer.Timer
	logger *slog.Logger
	opts   Options
	runKey string

	run          model.Run
	display      []model.Split
	backup       []model.Split
	currentSplit int
	currentPage  int
	showHelp     bool
	attempt      attemptState
}

// New returns a session for run, persisted through repo.
func New(repo Repository, run model.Run, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = timer.SystemClock
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = defaultArchiveTimeout
	}
	return &Session{
		repo:     repo,
		clock:    opts.Clock,
		timer:    timer.New(opts.Clock),
		logger:   opts.Logger,
		opts:     opts,
		runKey:   opts.RunKey,
		run:      run,
		display:  model.CloneSplits(run.Splits),
		backup:   model.CloneSplits(run.Splits),
		showHelp: opts.ShowHelp,
	}
}

// Split starts the run when idle or records the current split while running.
func (s *Session) Split() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.timer.State() {
	case timer.NotStarted:
		s.startRun()
	case timer.Running:
		s.recordSplit()
	}
}

// Start begins a new attempt when idle and resumes a paused timer.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.timer.State() {
	case timer.NotStarted:
		s.startRun()
	case timer.Paused:
		s.timer.Resume()
	}
}

// Pause pauses a running timer.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer.Pause()
}

// Reset abandons or closes the attempt and re-syncs from storage.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetSplits()
}

// UndoSplit steps back one split, restoring it from the attempt-start backup.
func (s *Session) UndoSplit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentSplit == 0 {
		return
	}
	wasEnded := s.timer.State() == timer.Ended
	s.currentSplit--
	i := s.currentSplit
	if i < len(s.backup) {
		b := s.backup[i]
		restore := func(sp *model.Split) {
			sp.LastTime = model.None()
			sp.PBTime = b.PBTime
			sp.GoldTime = b.GoldTime
			sp.GoldHistory = slices.Clone(b.GoldHistory)
			sp.PBHistory = slices.Clone(b.PBHistory)
		}
		if i < len(s.display) {
			restore(&s.display[i])
		}
		if i < len(s.run.Splits) {
			restore(&s.run.Splits[i])
		}
	}
	if wasEnded {
		s.reopenAttempt()
		s.timer.Resume()
	}
	s.updatePage()
	s.saveRun("undo split")
}

// UndoPB restores every split to its state at attempt start, persists it and
// resets.
func (s *Session) UndoPB() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run.Splits = model.CloneSplits(s.backup)
	s.saveRun("undo pb")
	s.resetSplits()
}

// SavePB persists the run only when the attempt is complete.
func (s *Session) SavePB() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentSplit != len(s.run.Splits) {
		return nil
	}
	if err := s.repo.Save(s.run); err != nil {
		return fmt.Errorf("failed to save pb: %w", err)
	}
	return nil
}

// Save persists the run unconditionally.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Save(s.run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// NextPage moves the split list forward one page.
func (s *Session) NextPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentPage+1 < s.pageCount() {
		s.currentPage++
	}
}

// PrevPage moves the split list back one page.
func (s *Session) PrevPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentPage > 0 {
		s.currentPage--
	}
}

// ToggleHelp flips help visibility.
func (s *Session) ToggleHelp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showHelp = !s.showHelp
}

// ReloadRun re-reads the configured run. Ignored unless the timer is idle.
func (s *Session) ReloadRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer.State() != timer.NotStarted {
		return
	}
	s.reloadRun()
}

// ReloadChanged re-reads the configured run when the stored document differs
// from the working copy. Writes made by the session itself leave the
// attempt-start backup untouched. Ignored unless the timer is idle.
func (s *Session) ReloadChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer.State() != timer.NotStarted {
		return
	}
	if stored, err := s.repo.Load(); err == nil && sameDocument(stored, s.run) {
		s.logger.Debug("run file unchanged, skipping reload")
		return
	}
	s.reloadRun()
}

// ReloadTheme re-reads display settings. Ignored unless the timer is idle.
func (s *Session) ReloadTheme() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer.State() != timer.NotStarted {
		return
	}
	s.reloadTheme()
}

// ReloadAll reloads display settings and the run. Ignored unless idle.
func (s *Session) ReloadAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer.State() != timer.NotStarted {
		return
	}
	s.reloadTheme()
	s.reloadRun()
	s.syncFromStore()
}

// ClearHistory empties all history logs and persists the run.
func (s *Session) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer.State() != timer.NotStarted {
		return ErrAttemptInProgress
	}
	s.run.ClearHistory()
	s.display = model.CloneSplits(s.run.Splits)
	s.backup = model.CloneSplits(s.run.Splits)
	if err := s.repo.Save(s.run); err != nil {
		return fmt.Errorf("failed to save cleared history: %w", err)
	}
	return nil
}

// State returns the timer state.
func (s *Session) State() timer.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.State()
}

// CurrentTime returns the timer reading.
func (s *Session) CurrentTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer.CurrentTime()
}

// CurrentSplit returns the index of the next split to record.
func (s *Session) CurrentSplit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSplit
}

// CurrentPage returns the visible page index.
func (s *Session) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPage
}

// Run returns a copy of the working run.
func (s *Session) Run() model.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run.Clone()
}

// Display returns a copy of the live split list.
func (s *Session) Display() []model.Split {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneSplits(s.display)
}

func (s *Session) startRun() {
	if len(s.run.Splits) == 0 {
		s.logger.Warn("cannot start attempt", "error", model.ErrNoSplits)
		return
	}
	s.backup = model.CloneSplits(s.run.Splits)
	s.display = model.CloneSplits(s.run.Splits)
	for i := range s.display {
		s.display[i].LastTime = model.None()
	}
	s.timer.StartWithOffset(s.run.Offset())
	s.currentSplit = 0
	s.updatePage()
	s.openAttempt()
}

func (s *Session) recordSplit() {
	now := s.timer.CurrentTime()
	if now < 0 {
		return
	}
	if s.currentSplit >= len(s.display) {
		return
	}
	s.display[s.currentSplit].LastTime = model.Some(now.Truncate(time.Millisecond))
	s.currentSplit++
	if s.currentSplit >= len(s.display) {
		s.timer.End()
	}
	s.updatePage()
	s.reconcile()
}

func (s *Session) resetSplits() {
	if s.attempt.open {
		s.abandonAttempt()
	}
	if s.currentSplit == len(s.run.Splits) {
		for i := range s.display {
			if i < len(s.run.Splits) {
				s.display[i].PBTime = s.run.Splits[i].PBTime
			}
			s.display[i].LastTime = model.None()
		}
	} else {
		for i := range s.display {
			s.display[i].LastTime = model.None()
		}
	}
	s.currentSplit = 0
	s.timer.Reset()
	s.syncFromStore()
}

func (s *Session) syncFromStore() {
	run, err := s.repo.Load()
	if err != nil {
		s.logger.Warn("failed to re-sync run, keeping in-memory copy", "error", err)
		s.updatePage()
		return
	}
	s.run = run
	s.display = model.CloneSplits(run.Splits)
	s.updatePage()
}

func (s *Session) reloadRun() {
	if s.opts.ReloadRepository != nil {
		repo, key, err := s.opts.ReloadRepository()
		if err != nil {
			s.logger.Warn("failed to resolve run, keeping current", "error", err)
		} else {
			s.repo = repo
			s.runKey = key
		}
	}
	run, err := s.repo.Load()
	if err != nil {
		s.logger.Warn("failed to load run, using default", "error", err)
		run = model.DefaultRun()
	}
	s.run = run
	s.display = model.CloneSplits(run.Splits)
	s.backup = model.CloneSplits(run.Splits)
	s.currentSplit = 0
	s.currentPage = 0
	s.updatePage()
}

// sameDocument reports whether a and b persist to the same document.
func sameDocument(a, b model.Run) bool {
	a = a.Clone()
	b = b.Clone()
	a.ClearLastTimes()
	b.ClearLastTimes()
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func (s *Session) reloadTheme() {
	if s.opts.ReloadTheme == nil {
		return
	}
	if err := s.opts.ReloadTheme(); err != nil {
		s.logger.Warn("failed to reload theme", "error", err)
	}
}

func (s *Session) updatePage() {
	per := s.run.PerPage()
	next := s.currentSplit / per
	maxPage := 0
	if n := len(s.display); n > 0 {
		maxPage = (n - 1) / per
	}
	s.currentPage = min(next, maxPage)
}

func (s *Session) pageCount() int {
	per := s.run.PerPage()
	return (len(s.run.Splits) + per - 1) / per
}

// saveRun persists the working run. Failures are logged; the in-memory state
// stays authoritative.
func (s *Session) saveRun(op string) {
	if err := s.repo.Save(s.run); err != nil {
		s.logger.Error("failed to save run", "op", op, "error", err)
	}
}

// writeThrough applies mutate to the working run and to the stored document,
// then saves the stored document. Unrelated stored fields are left alone.
func (s *Session) writeThrough(op string, mutate func(r *model.Run)) {
	mutate(&s.run)
	stored, err := s.repo.Load()
	if err != nil {
		s.logger.Warn("stored run unavailable, saving working copy", "op", op, "error", err)
		stored = s.run.Clone()
	} else {
		mutate(&stored)
	}
	if err := s.repo.Save(stored); err != nil {
		s.logger.Error("failed to save run", "op", op, "error", err)
	}
}
