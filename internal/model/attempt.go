package model

import "time"

// AttemptRecord captures an ended attempt for the attempt archive.
type AttemptRecord struct {
	RunKey       string
	Title        string
	Category     string
	AttemptIndex int
	StartedAt    time.Time
	EndedAt      time.Time
	Total        Duration
	Completed    bool
	PersonalBest bool
	Segments     []SegmentRecord
}

// SegmentRecord is one split of an archived attempt.
type SegmentRecord struct {
	SplitIndex int
	Name       string
	SplitTime  Duration
	Segment    Duration
}

// AttemptFilter narrows archive queries.
type AttemptFilter struct {
	RunKey        string
	Since         *time.Time
	Last          int
	CompletedOnly bool
}

// AttemptSummary is an archived attempt as listed for reporting.
type AttemptSummary struct {
	ID           int64
	RunKey       string
	AttemptIndex int
	EndedAt      time.Time
	TotalMs      *int64
	Completed    bool
	PersonalBest bool
}

// SegmentAggregate summarizes one split's segments across archived attempts.
type SegmentAggregate struct {
	SplitIndex int
	Name       string
	Count      int
	BestMs     int64
	SumMs      int64
}

// RunSummary lists a run known to the archive.
type RunSummary struct {
	RunKey    string
	Title     string
	Category  string
	Attempts  int
	Completed int
	LastEnded time.Time
}
