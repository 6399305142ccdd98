package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/tuisplit/internal/model"
	"github.com/verte-zerg/tuisplit/internal/runfile"
	"github.com/verte-zerg/tuisplit/internal/timer"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type memRepo struct {
	mu      sync.Mutex
	run     *model.Run
	saves   int
	saveErr error
	loadErr error
}

func (r *memRepo) Load() (model.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return model.Run{}, r.loadErr
	}
	if r.run == nil {
		return model.Run{}, errors.New("no run stored")
	}
	return r.run.Clone(), nil
}

func (r *memRepo) Save(run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	out := run.Clone()
	out.ClearLastTimes()
	r.run = &out
	r.saves++
	return nil
}

func (r *memRepo) stored(t *testing.T) model.Run {
	t.Helper()
	run, err := r.Load()
	if err != nil {
		t.Fatalf("load stored run: %v", err)
	}
	return run
}

type fakeArchive struct {
	records []model.AttemptRecord
}

func (a *fakeArchive) InsertAttempt(_ context.Context, rec model.AttemptRecord) (int64, error) {
	a.records = append(a.records, rec)
	return int64(len(a.records)), nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, run model.Run) (*Session, *memRepo, *fakeClock) {
	t.Helper()
	repo := &memRepo{}
	if err := repo.Save(run); err != nil {
		t.Fatalf("seed repo: %v", err)
	}
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(repo, repo.stored(t), Options{Clock: clock, Logger: quietLogger()})
	return s, repo, clock
}

// splitAt advances the clock so the next split lands at the given run time.
func splitAt(s *Session, clock *fakeClock, at time.Duration) {
	clock.advance(at - s.CurrentTime())
	s.Split()
}

func TestSplitStartsRunThenRecords(t *testing.T) {
	s, _, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A", "B"}))
	s.Split()
	if s.State() != timer.Running || s.CurrentSplit() != 0 {
		t.Fatalf("expected running at split 0, got %v %d", s.State(), s.CurrentSplit())
	}
	splitAt(s, clock, 10*time.Second)
	display := s.Display()
	if display[0].LastTime != model.Some(10*time.Second) {
		t.Fatalf("unexpected last time %+v", display[0].LastTime)
	}
}

func TestSplitMonotonicity(t *testing.T) {
	s, _, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A", "B", "C"}))
	s.Split()
	for i := 1; i <= 3; i++ {
		splitAt(s, clock, time.Duration(i)*time.Second)
		if s.CurrentSplit() != i {
			t.Fatalf("expected current split %d, got %d", i, s.CurrentSplit())
		}
	}
	if s.State() != timer.Ended {
		t.Fatalf("expected timer to stop after last split, got %v", s.State())
	}
	frozen := s.CurrentTime()
	clock.advance(time.Second)
	s.Split()
	if s.CurrentSplit() != 3 || s.CurrentTime() != frozen {
		t.Fatalf("extra split must be ignored, got %d %v", s.CurrentSplit(), s.CurrentTime())
	}
}

func TestSplitIgnoredDuringPreRoll(t *testing.T) {
	run := model.NewRun("G", "Any%", []string{"A"})
	offset := int64(3000)
	run.StartOffset = &offset
	s, _, clock := newTestSession(t, run)
	s.Split()
	if got := s.CurrentTime(); got != -3*time.Second {
		t.Fatalf("expected -3s, got %v", got)
	}
	clock.advance(time.Second)
	s.Split()
	if s.CurrentSplit() != 0 {
		t.Fatalf("split during pre-roll must be dropped")
	}
	clock.advance(3 * time.Second)
	s.Split()
	if s.CurrentSplit() != 1 {
		t.Fatalf("expected split after pre-roll")
	}
	if got := s.Display()[0].LastTime; got != model.Some(time.Second) {
		t.Fatalf("unexpected last time %+v", got)
	}
}

func TestSplitIgnoredWhilePaused(t *testing.T) {
	s, _, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A", "B"}))
	s.Split()
	clock.advance(time.Second)
	s.Pause()
	s.Split()
	if s.CurrentSplit() != 0 {
		t.Fatalf("split while paused must be a no-op")
	}
	s.Start()
	clock.advance(time.Second)
	s.Split()
	if got := s.Display()[0].LastTime; got != model.Some(2*time.Second) {
		t.Fatalf("expected 2s after resume, got %+v", got)
	}
}

func TestGoldScenario(t *testing.T) {
	s, repo, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A", "B"}))

	s.Split()
	splitAt(s, clock, 10*time.Second)
	splitAt(s, clock, 18*time.Second)
	assertGolds(t, s.Run(), 10*time.Second, 8*time.Second)
	s.Reset()

	s.Split()
	splitAt(s, clock, 9*time.Second)
	splitAt(s, clock, 20*time.Second)
	assertGolds(t, s.Run(), 9*time.Second, 8*time.Second)
	assertGolds(t, repo.stored(t), 9*time.Second, 8*time.Second)

	hist := repo.stored(t).Splits[0].GoldHistory
	if len(hist) != 2 || hist[1].RunIndex != 2 || hist[1].Time != model.Some(9*time.Second) {
		t.Fatalf("unexpected gold history %+v", hist)
	}
	if len(repo.stored(t).Splits[1].GoldHistory) != 1 {
		t.Fatalf("split B gold history must only record the improvement")
	}
}

func TestGoldRunningMinimumAcrossAttempts(t *testing.T) {
	s, _, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A"}))
	for _, seg := range []time.Duration{10 * time.Second, 8 * time.Second, 12 * time.Second} {
		s.Split()
		splitAt(s, clock, seg)
		s.Reset()
	}
	assertGolds(t, s.Run(), 8*time.Second)
}

func TestGoldWrittenThroughMidAttempt(t *testing.T) {
	run := model.NewRun("G", "Any%", []string{"A", "B", "C"})
	run.AutoUpdatePB = false
	s, repo, clock := newTestSession(t, run)
	s.Split()
	splitAt(s, clock, 5*time.Second)
	stored := repo.stored(t)
	if stored.Splits[0].GoldTime != model.Some(5*time.Second) {
		t.Fatalf("gold must persist immediately, got %+v", stored.Splits[0].GoldTime)
	}
	if stored.Splits[1].GoldTime.Valid {
		t.Fatalf("unrecorded split must not get a gold")
	}
}

func TestGoldsIgnoredOutsideGoldMode(t *testing.T) {
	run := model.NewRun("G", "Any%", []string{"A"})
	run.GoldSplit = false
	s, _, clock := newTestSession(t, run)
	s.Split()
	splitAt(s, clock, 5*time.Second)
	if s.Run().Splits[0].GoldTime.Valid {
		t.Fatalf("gold must not change outside gold mode")
	}
	if s.Run().Splits[0].PBTime != model.Some(5*time.Second) {
		t.Fatalf("expected first completed attempt to become pb")
	}
}

func TestFirstCompletedAttemptBecomesPB(t *testing.T) {
	s, repo, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A", "B"}))
	s.Split()
	splitAt(s, clock, 10*time.Second)
	splitAt(s, clock, 18*time.Second)
	stored := repo.stored(t)
	assertPBs(t, stored, 10*time.Second, 8*time.Second)
	if len(stored.PBHistory) != 1 || len(stored.AttemptHistory) != 1 {
		t.Fatalf("expected one attempt and one pb entry, got %+v %+v", stored.AttemptHistory, stored.PBHistory)
	}
	if stored.AttemptHistory[0].TotalTime != model.Some(18*time.Second) || !stored.AttemptHistory[0].Ended {
		t.Fatalf("unexpected attempt entry %+v", stored.AttemptHistory[0])
	}
	for _, sp := range stored.Splits {
		if sp.LastTime.Valid {
			t.Fatalf("last times must not be persisted")
		}
	}
	if got := s.Display()[1].LastTime; got != model.Some(18*time.Second) {
		t.Fatalf("display must keep last times until reset, got %+v", got)
	}
}

func TestPBIsAllOrNothing(t *testing.T) {
	run := model.NewRun("G", "Any%", []string{"A", "B"})
	run.Splits[0].PBTime = model.Millis(10000)
	run.Splits[1].PBTime = model.Millis(8000)
	s, repo, clock := newTestSession(t, run)

	s.Split()
	splitAt(s, clock, 9*time.Second)
	splitAt(s, clock, 18*time.Second)
	assertPBs(t, s.Run(), 10*time.Second, 8*time.Second)
	assertPBs(t, repo.stored(t), 10*time.Second, 8*time.Second)
	s.Reset()

	s.Split()
	splitAt(s, clock, 9*time.Second)
	splitAt(s, clock, 17*time.Second)
	assertPBs(t, repo.stored(t), 9*time.Second, 8*time.Second)
}

func TestPBWaitsForSaveWithoutAutoUpdate(t *testing.T) {
	run := model.NewRun("G", "Any%", []string{"A"})
	run.AutoUpdatePB = false
	s, repo, clock := newTestSession(t, run)
	s.Split()
	splitAt(s, clock, 7*time.Second)
	if repo.stored(t).Splits[0].PBTime.Valid {
		t.Fatalf("pb must not be saved without auto update")
	}
	if len(repo.stored(t).AttemptHistory) != 1 {
		t.Fatalf("attempt history must still be written")
	}
	if err := s.SavePB(); err != nil {
		t.Fatalf("save pb: %v", err)
	}
	if repo.stored(t).Splits[0].PBTime != model.Some(7*time.Second) {
		t.Fatalf("expected pb after explicit save")
	}
}

func TestSavePBGuardedUntilComplete(t *testing.T) {
	s, repo, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A", "B"}))
	s.Split()
	splitAt(s, clock, time.Second)
	before := repo.saves
	if err := s.SavePB(); err != nil {
		t.Fatalf("save pb: %v", err)
	}
	if repo.saves != before {
		t.Fatalf("save pb must not write mid-attempt")
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if repo.saves != before+1 {
		t.Fatalf("save must always write")
	}
}

func TestResetAfterCompletionKeepsPB(t *testing.T) {
	s, _, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A"}))
	s.Split()
	splitAt(s, clock, 4*time.Second)
	s.Reset()
	if s.State() != timer.NotStarted || s.CurrentSplit() != 0 {
		t.Fatalf("expected idle session after reset")
	}
	display := s.Display()
	if display[0].LastTime.Valid || display[0].PBTime != model.Some(4*time.Second) {
		t.Fatalf("unexpected display after reset %+v", display[0])
	}
}

func TestResetMidAttemptLogsAbandonedAttempt(t *testing.T) {
	s, repo, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A", "B"}))
	s.Split()
	splitAt(s, clock, 3*time.Second)
	clock.advance(time.Second)
	s.Reset()
	stored := repo.stored(t)
	if stored.Attempts != 1 {
		t.Fatalf("expected attempts 1, got %d", stored.Attempts)
	}
	if len(stored.AttemptHistory) != 1 {
		t.Fatalf("expected one attempt entry, got %d", len(stored.AttemptHistory))
	}
	entry := stored.AttemptHistory[0]
	if entry.Ended || entry.TotalTime != model.Some(4*time.Second) || entry.RunIndex != 1 {
		t.Fatalf("unexpected abandoned entry %+v", entry)
	}
	if stored.Splits[0].PBTime.Valid {
		t.Fatalf("abandoned attempt must not set pb")
	}
	for _, sp := range s.Display() {
		if sp.LastTime.Valid {
			t.Fatalf("reset must clear last times")
		}
	}
}

func TestResetResyncsFromStorage(t *testing.T) {
	s, repo, _ := newTestSession(t, model.NewRun("G", "Any%", []string{"A"}))
	edited := repo.stored(t)
	edited.Title = "Edited"
	if err := repo.Save(edited); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Reset()
	if s.Run().Title != "Edited" {
		t.Fatalf("expected reset to pick up external edit")
	}
}

func TestResetKeepsMemoryWhenStorageUnreadable(t *testing.T) {
	s, repo, _ := newTestSession(t, model.NewRun("G", "Any%", []string{"A"}))
	repo.loadErr = errors.New("disk gone")
	s.Reset()
	if s.Run().Title != "G" {
		t.Fatalf("expected in-memory run to survive failed re-sync")
	}
}

func TestUndoSplitRestoresBackup(t *testing.T) {
	run := model.NewRun("G", "Any%", []string{"A", "B", "C"})
	run.Splits[1].GoldTime = model.Millis(9000)
	s, repo, clock := newTestSession(t, run)
	s.Split()
	splitAt(s, clock, 10*time.Second)
	splitAt(s, clock, 15*time.Second)
	if s.Run().Splits[1].GoldTime != model.Some(5*time.Second) {
		t.Fatalf("expected improved gold before undo")
	}
	s.UndoSplit()
	if s.CurrentSplit() != 1 {
		t.Fatalf("expected current split 1, got %d", s.CurrentSplit())
	}
	if s.Display()[1].LastTime.Valid {
		t.Fatalf("undone split must lose its time")
	}
	if s.Run().Splits[1].GoldTime != model.Millis(9000) {
		t.Fatalf("expected gold restored, got %+v", s.Run().Splits[1].GoldTime)
	}
	stored := repo.stored(t)
	if stored.Splits[1].GoldTime != model.Millis(9000) {
		t.Fatalf("undo must persist restored gold")
	}
	splitAt(s, clock, 20*time.Second)
	if got := s.Display()[1].LastTime; got != model.Some(20*time.Second) {
		t.Fatalf("expected re-recorded split, got %+v", got)
	}
}

func TestUndoSplitAtStartIsNoop(t *testing.T) {
	s, repo, _ := newTestSession(t, model.NewRun("G", "Any%", []string{"A"}))
	before := repo.saves
	s.UndoSplit()
	s.Split()
	s.UndoSplit()
	if s.CurrentSplit() != 0 || s.State() != timer.Running {
		t.Fatalf("undo at index 0 must be ignored")
	}
	if repo.saves != before+1 {
		t.Fatalf("expected only the attempt counter write, got %d saves", repo.saves-before)
	}
}

func TestUndoSplitAfterCompletionReopensAttempt(t *testing.T) {
	s, repo, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A", "B"}))
	s.Split()
	splitAt(s, clock, 5*time.Second)
	splitAt(s, clock, 9*time.Second)
	s.UndoSplit()
	if s.State() != timer.Running {
		t.Fatalf("expected timer running after undoing final split, got %v", s.State())
	}
	if got := len(repo.stored(t).AttemptHistory); got != 0 {
		t.Fatalf("completion entry must be withdrawn, got %d entries", got)
	}
	splitAt(s, clock, 11*time.Second)
	stored := repo.stored(t)
	if len(stored.AttemptHistory) != 1 || stored.AttemptHistory[0].TotalTime != model.Some(11*time.Second) {
		t.Fatalf("unexpected attempt history %+v", stored.AttemptHistory)
	}
	if len(stored.PBHistory) != 1 {
		t.Fatalf("expected one pb entry, got %+v", stored.PBHistory)
	}
	for i, sp := range stored.Splits {
		if len(sp.PBHistory) != 1 {
			t.Fatalf("split %d pb history = %+v, want one entry", i, sp.PBHistory)
		}
	}
	assertPBs(t, stored, 5*time.Second, 6*time.Second)
}

func TestUndoFinalSplitRollsBackPBTimes(t *testing.T) {
	run := model.NewRun("G", "Any%", []string{"A", "B"})
	run.Splits[0].PBTime = model.Millis(10000)
	run.Splits[1].PBTime = model.Millis(5000)
	s, repo, clock := newTestSession(t, run)
	s.Split()
	splitAt(s, clock, 5*time.Second)
	splitAt(s, clock, 9*time.Second)
	assertPBs(t, repo.stored(t), 5*time.Second, 4*time.Second)

	s.UndoSplit()
	assertPBs(t, repo.stored(t), 10*time.Second, 5*time.Second)
	splitAt(s, clock, 20*time.Second)
	stored := repo.stored(t)
	assertPBs(t, stored, 10*time.Second, 5*time.Second)
	if len(stored.PBHistory) != 0 || len(stored.Splits[0].PBHistory) != 0 {
		t.Fatalf("slower finish must not log a pb: %+v %+v", stored.PBHistory, stored.Splits[0].PBHistory)
	}
}

func TestUndoPBRestoresExactly(t *testing.T) {
	dir := t.TempDir()
	repo := runfile.New(filepath.Join(dir, "run"))
	run := model.NewRun("G", "Any%", []string{"A", "B", "C"})
	run.Splits[0].GoldTime = model.Millis(12000)
	run.Splits[0].PBTime = model.Millis(15000)
	if err := repo.Save(run); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := repo.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(repo, loaded, Options{Clock: clock, Logger: quietLogger()})

	s.Split()
	atStart := s.Run().Splits
	splitAt(s, clock, 10*time.Second)
	splitAt(s, clock, 13*time.Second)
	if reflect.DeepEqual(atStart, s.Run().Splits) {
		t.Fatalf("expected splits to change during the attempt")
	}
	s.UndoPB()
	if !reflect.DeepEqual(atStart, s.Run().Splits) {
		t.Fatalf("undo pb mismatch:\nwant %+v\ngot  %+v", atStart, s.Run().Splits)
	}
	stored, err := repo.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(atStart, stored.Splits) {
		t.Fatalf("stored splits mismatch after undo pb")
	}
	if s.State() != timer.NotStarted {
		t.Fatalf("undo pb must reset")
	}
}

func TestPersistenceFailureDoesNotBlockTransitions(t *testing.T) {
	s, repo, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A", "B"}))
	repo.saveErr = errors.New("disk full")
	s.Split()
	splitAt(s, clock, 2*time.Second)
	splitAt(s, clock, 3*time.Second)
	if s.CurrentSplit() != 2 || s.State() != timer.Ended {
		t.Fatalf("transitions must complete despite save errors")
	}
	if s.Run().Splits[0].PBTime != model.Some(2*time.Second) {
		t.Fatalf("in-memory pb must be kept")
	}
	if err := s.Save(); err == nil {
		t.Fatalf("explicit save must report the error")
	}
}

func TestAttemptsCountedOnStart(t *testing.T) {
	s, repo, _ := newTestSession(t, model.NewRun("G", "Any%", []string{"A"}))
	s.Split()
	s.Reset()
	s.Start()
	if got := repo.stored(t).Attempts; got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestStartCommandResumes(t *testing.T) {
	s, _, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A"}))
	s.Start()
	clock.advance(time.Second)
	s.Pause()
	clock.advance(time.Minute)
	s.Start()
	clock.advance(time.Second)
	if got := s.CurrentTime(); got != 2*time.Second {
		t.Fatalf("expected 2s, got %v", got)
	}
}

func TestPaging(t *testing.T) {
	run := model.NewRun("G", "Any%", []string{"1", "2", "3", "4", "5", "6", "7"})
	perPage := 3
	run.SplitsPerPage = &perPage
	s, _, clock := newTestSession(t, run)
	s.PrevPage()
	if s.CurrentPage() != 0 {
		t.Fatalf("prev page at 0 must be ignored")
	}
	s.NextPage()
	s.NextPage()
	s.NextPage()
	if s.CurrentPage() != 2 {
		t.Fatalf("expected last page 2, got %d", s.CurrentPage())
	}
	s.Split()
	if s.CurrentPage() != 0 {
		t.Fatalf("start must return to first page")
	}
	for i := 1; i <= 3; i++ {
		splitAt(s, clock, time.Duration(i)*time.Second)
	}
	if s.CurrentPage() != 1 {
		t.Fatalf("expected page to follow current split, got %d", s.CurrentPage())
	}
}

func TestReloadIgnoredWhileRunning(t *testing.T) {
	s, repo, _ := newTestSession(t, model.NewRun("G", "Any%", []string{"A"}))
	edited := repo.stored(t)
	edited.Title = "Edited"
	if err := repo.Save(edited); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Split()
	s.ReloadRun()
	if s.Run().Title == "Edited" {
		t.Fatalf("reload must wait for an idle timer")
	}
	s.Reset()
	s.ReloadAll()
	if s.Run().Title != "Edited" {
		t.Fatalf("expected reload when idle")
	}
}

func TestReloadChangedKeepsBackupAfterOwnSave(t *testing.T) {
	run := model.NewRun("G", "Any%", []string{"A", "B"})
	run.Splits[0].PBTime = model.Millis(10000)
	run.Splits[1].PBTime = model.Millis(10000)
	s, repo, clock := newTestSession(t, run)
	s.Split()
	splitAt(s, clock, 5*time.Second)
	splitAt(s, clock, 9*time.Second)
	assertPBs(t, repo.stored(t), 5*time.Second, 4*time.Second)

	s.Reset()
	s.ReloadChanged()
	s.UndoPB()
	assertPBs(t, repo.stored(t), 10*time.Second, 10*time.Second)
	assertPBs(t, s.Run(), 10*time.Second, 10*time.Second)
}

func TestReloadChangedPicksUpEdits(t *testing.T) {
	s, repo, _ := newTestSession(t, model.NewRun("G", "Any%", []string{"A"}))
	edited := repo.stored(t)
	edited.Title = "Edited"
	edited.Splits = append(edited.Splits, model.NewRun("", "", []string{"B"}).Splits...)
	if err := repo.Save(edited); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.ReloadChanged()
	got := s.Run()
	if got.Title != "Edited" || len(got.Splits) != 2 || len(s.Display()) != 2 {
		t.Fatalf("expected edited run to be loaded, got %+v", got)
	}
}

func TestReloadChangedIgnoredWhileRunning(t *testing.T) {
	s, repo, _ := newTestSession(t, model.NewRun("G", "Any%", []string{"A", "B"}))
	s.Split()
	edited := repo.stored(t)
	edited.Title = "Edited"
	if err := repo.Save(edited); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.ReloadChanged()
	if got := s.Run().Title; got != "G" {
		t.Fatalf("reload must wait for an idle timer, got title %q", got)
	}
}

func TestReloadThemeHook(t *testing.T) {
	calls := 0
	repo := &memRepo{}
	run := model.NewRun("G", "Any%", []string{"A"})
	if err := repo.Save(run); err != nil {
		t.Fatalf("save: %v", err)
	}
	s := New(repo, run, Options{Logger: quietLogger(), ReloadTheme: func() error {
		calls++
		return nil
	}})
	s.ReloadTheme()
	s.ReloadAll()
	if calls != 2 {
		t.Fatalf("expected 2 theme reloads, got %d", calls)
	}
}

func TestReloadSwitchesRepositoryAndKey(t *testing.T) {
	first := &memRepo{}
	if err := first.Save(model.NewRun("First", "Any%", []string{"A"})); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := &memRepo{}
	if err := second.Save(model.NewRun("Second", "Any%", []string{"X", "Y"})); err != nil {
		t.Fatalf("save: %v", err)
	}
	clock := &fakeClock{now: time.Unix(100, 0)}
	archive := &fakeArchive{}
	s := New(first, first.stored(t), Options{
		Clock:   clock,
		Logger:  quietLogger(),
		Archive: archive,
		RunKey:  "first",
		ReloadRepository: func() (Repository, string, error) {
			return second, "second", nil
		},
	})
	s.ReloadRun()
	if s.Run().Title != "Second" || len(s.Display()) != 2 {
		t.Fatalf("expected second run after reload, got %+v", s.Run())
	}
	s.Split()
	splitAt(s, clock, time.Second)
	splitAt(s, clock, 2*time.Second)
	if len(archive.records) != 1 || archive.records[0].RunKey != "second" {
		t.Fatalf("expected attempt archived under new key, got %+v", archive.records)
	}
	if first.stored(t).Attempts != 0 || second.stored(t).Attempts != 1 {
		t.Fatalf("attempt counted against the wrong run")
	}
}

func TestClearHistory(t *testing.T) {
	s, repo, clock := newTestSession(t, model.NewRun("G", "Any%", []string{"A"}))
	s.Split()
	splitAt(s, clock, time.Second)
	if err := s.ClearHistory(); !errors.Is(err, ErrAttemptInProgress) {
		t.Fatalf("expected attempt in progress error, got %v", err)
	}
	s.Reset()
	if err := s.ClearHistory(); err != nil {
		t.Fatalf("clear history: %v", err)
	}
	stored := repo.stored(t)
	if stored.Attempts != 0 || len(stored.AttemptHistory) != 0 || len(stored.Splits[0].GoldHistory) != 0 {
		t.Fatalf("history not cleared: %+v", stored)
	}
	if stored.Splits[0].PBTime != model.Some(time.Second) {
		t.Fatalf("clear history must keep pb")
	}
}

func TestArchiveReceivesAttempts(t *testing.T) {
	repo := &memRepo{}
	run := model.NewRun("G", "Any%", []string{"A", "B"})
	if err := repo.Save(run); err != nil {
		t.Fatalf("save: %v", err)
	}
	clock := &fakeClock{now: time.Unix(100, 0)}
	archive := &fakeArchive{}
	s := New(repo, run, Options{Clock: clock, Logger: quietLogger(), Archive: archive, RunKey: "g"})
	s.Split()
	splitAt(s, clock, 2*time.Second)
	s.Reset()
	s.Split()
	splitAt(s, clock, 2*time.Second)
	splitAt(s, clock, 5*time.Second)
	if len(archive.records) != 2 {
		t.Fatalf("expected 2 archived attempts, got %d", len(archive.records))
	}
	first, second := archive.records[0], archive.records[1]
	if first.Completed || first.RunKey != "g" || first.AttemptIndex != 1 {
		t.Fatalf("unexpected first record %+v", first)
	}
	if !second.Completed || !second.PersonalBest || second.Total != model.Some(5*time.Second) {
		t.Fatalf("unexpected second record %+v", second)
	}
	if second.Segments[1].Segment != model.Some(3*time.Second) {
		t.Fatalf("unexpected segment %+v", second.Segments[1])
	}
}

func TestConcurrentCommands(t *testing.T) {
	s, _, _ := newTestSession(t, model.NewRun("G", "Any%", []string{"A", "B", "C"}))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Snapshot()
				s.NextPage()
				s.ToggleHelp()
			}
		}()
	}
	wg.Wait()
}

func assertGolds(t *testing.T, run model.Run, want ...time.Duration) {
	t.Helper()
	for i, w := range want {
		if got := run.Splits[i].GoldTime; got != model.Some(w) {
			t.Fatalf("split %d gold = %+v, want %v", i, got, w)
		}
	}
}

func assertPBs(t *testing.T, run model.Run, want ...time.Duration) {
	t.Helper()
	for i, w := range want {
		if got := run.Splits[i].PBTime; got != model.Some(w) {
			t.Fatalf("split %d pb = %+v, want %v", i, got, w)
		}
	}
}
