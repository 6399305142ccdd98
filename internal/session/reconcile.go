package session

import (
	"time"

	"github.com/verte-zerg/tuisplit/internal/model"
)

// Segments converts cumulative last times into per-split segment durations.
// A split without a recorded time yields an unset segment; a missing previous
// time counts as zero.
func Segments(splits []model.Split) []model.Duration {
	out := make([]model.Duration, len(splits))
	for i, sp := range splits {
		last, ok := sp.LastTime.Get()
		if !ok {
			continue
		}
		var prev time.Duration
		if i > 0 {
			prev = splits[i-1].LastTime.Or(0)
		}
		out[i] = model.Some(last - prev)
	}
	return out
}

// reconcile runs after every recorded split. In gold mode the best segments
// are updated and written through; once every split is recorded the attempt
// is evaluated as a personal best.
func (s *Session) reconcile() {
	segments := Segments(s.display)
	if s.run.GoldSplit {
		s.updateGolds(segments)
	}
	if s.currentSplit != len(s.run.Splits) {
		return
	}
	s.completeAttempt(segments)
}

// improvedGolds returns the gold of every split after folding in segments,
// and the indexes that improved.
func improvedGolds(splits []model.Split, segments []model.Duration) ([]model.Duration, []int) {
	golds := make([]model.Duration, len(splits))
	var improved []int
	for i, sp := range splits {
		golds[i] = sp.GoldTime
		if i >= len(segments) {
			continue
		}
		seg, ok := segments[i].Get()
		if !ok {
			continue
		}
		if gold, has := golds[i].Get(); !has || seg < gold {
			golds[i] = model.Some(seg)
			improved = append(improved, i)
		}
	}
	return golds, improved
}

func (s *Session) updateGolds(segments []model.Duration) {
	golds, improved := improvedGolds(s.run.Splits, segments)
	index := s.attempt.index
	s.writeThrough("gold", func(r *model.Run) {
		for i := range r.Splits {
			if i >= len(golds) {
				break
			}
			r.Splits[i].GoldTime = golds[i]
		}
		for _, i := range improved {
			if i >= len(r.Splits) {
				continue
			}
			r.Splits[i].GoldHistory = append(r.Splits[i].GoldHistory, model.SegmentHistoryEntry{
				RunIndex: index,
				Time:     golds[i],
			})
		}
	})
}

// isNewPB reports whether every segment is recorded and no worse than the
// stored PB segment. A split without a PB accepts any segment.
func isNewPB(splits []model.Split, segments []model.Duration) bool {
	if len(splits) == 0 || len(segments) != len(splits) {
		return false
	}
	for i, sp := range splits {
		seg, ok := segments[i].Get()
		if !ok {
			return false
		}
		if pb, has := sp.PBTime.Get(); has && seg > pb {
			return false
		}
	}
	return true
}

func (s *Session) completeAttempt(segments []model.Duration) {
	pb := isNewPB(s.run.Splits, segments)
	if pb {
		for i := range s.run.Splits {
			s.run.Splits[i].PBTime = segments[i]
			s.run.Splits[i].PBHistory = append(s.run.Splits[i].PBHistory, model.SegmentHistoryEntry{
				RunIndex: s.attempt.index,
				Time:     segments[i],
			})
		}
	}
	s.run.ClearLastTimes()
	s.closeAttempt(true, pb)
}
