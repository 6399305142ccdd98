package session

import (
	"context"
	"time"

	"github.com/verte-zerg/tuisplit/internal/model"
)

// Archive stores ended attempts outside the run document.
type Archive interface {
	InsertAttempt(ctx context.Context, rec model.AttemptRecord) (int64, error)
}

type attemptState struct {
	open      bool
	index     int
	startedAt time.Time
}

// openAttempt bumps the attempt counter for a freshly started run.
func (s *Session) openAttempt() {
	index := s.run.Attempts + 1
	s.writeThrough("start", func(r *model.Run) {
		r.Attempts = index
	})
	s.attempt = attemptState{open: true, index: index, startedAt: s.clock.Now()}
}

// closeAttempt logs a completed attempt. A PB is saved in full when the run
// auto-updates; otherwise only the attempt log is written through and the
// PB waits for an explicit save.
func (s *Session) closeAttempt(completed, pb bool) {
	now := s.clock.Now().UTC()
	entry := model.AttemptHistoryEntry{
		RunIndex: s.attempt.index,
		Ended:    completed,
		Date:     &now,
	}
	if n := len(s.display); n > 0 {
		entry.TotalTime = s.display[n-1].LastTime
	}
	if pb && s.run.AutoUpdatePB {
		s.run.AttemptHistory = append(s.run.AttemptHistory, entry)
		s.run.PBHistory = append(s.run.PBHistory, entry)
		s.saveRun("pb")
	} else {
		s.writeThrough("attempt", func(r *model.Run) {
			r.AttemptHistory = append(r.AttemptHistory, entry)
		})
		if pb {
			s.run.PBHistory = append(s.run.PBHistory, entry)
		}
	}
	s.archiveAttempt(entry.TotalTime, completed, pb)
	s.attempt.open = false
}

// abandonAttempt logs an attempt reset before its last split.
func (s *Session) abandonAttempt() {
	now := s.clock.Now().UTC()
	entry := model.AttemptHistoryEntry{
		RunIndex: s.attempt.index,
		Date:     &now,
	}
	if t := s.timer.CurrentTime(); t >= 0 {
		entry.TotalTime = model.Some(t.Truncate(time.Millisecond))
	}
	s.writeThrough("abandon", func(r *model.Run) {
		r.AttemptHistory = append(r.AttemptHistory, entry)
	})
	s.archiveAttempt(entry.TotalTime, false, false)
	s.attempt.open = false
}

// reopenAttempt withdraws the completion entries of the current attempt so it
// can be finished again after an undo. PB times it set are rolled back to the
// attempt-start backup.
func (s *Session) reopenAttempt() {
	index := s.attempt.index
	drop := func(entries []model.AttemptHistoryEntry) []model.AttemptHistoryEntry {
		if n := len(entries); n > 0 && entries[n-1].RunIndex == index && entries[n-1].Ended {
			return entries[:n-1]
		}
		return entries
	}
	s.run.AttemptHistory = drop(s.run.AttemptHistory)
	s.run.PBHistory = drop(s.run.PBHistory)
	for i := range s.run.Splits {
		sp := &s.run.Splits[i]
		n := len(sp.PBHistory)
		if n == 0 || sp.PBHistory[n-1].RunIndex != index {
			continue
		}
		sp.PBHistory = sp.PBHistory[:n-1]
		if i < len(s.backup) {
			sp.PBTime = s.backup[i].PBTime
		}
	}
	s.attempt.open = true
}

func (s *Session) archiveAttempt(total model.Duration, completed, pb bool) {
	if s.opts.Archive == nil {
		return
	}
	segments := Segments(s.display)
	rec := model.AttemptRecord{
		RunKey:       s.runKey,
		Title:        s.run.Title,
		Category:     s.run.Category,
		AttemptIndex: s.attempt.index,
		StartedAt:    s.attempt.startedAt,
		EndedAt:      s.clock.Now(),
		Total:        total,
		Completed:    completed,
		PersonalBest: pb,
		Segments:     make([]model.SegmentRecord, 0, len(s.display)),
	}
	for i, sp := range s.display {
		rec.Segments = append(rec.Segments, model.SegmentRecord{
			SplitIndex: i,
			Name:       sp.Name,
			SplitTime:  sp.LastTime,
			Segment:    segments[i],
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ArchiveTimeout)
	defer cancel()
	if _, err := s.opts.Archive.InsertAttempt(ctx, rec); err != nil {
		s.logger.Error("failed to archive attempt", "attempt", rec.AttemptIndex, "error", err)
	}
}
