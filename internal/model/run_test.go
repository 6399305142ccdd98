package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRunRoundTrip(t *testing.T) {
	offset := int64(2500)
	icon := "icons/boss.png"
	date := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	run := NewRun("Game", "Any%", []string{"A", "B"})
	run.StartOffset = &offset
	run.Attempts = 3
	run.Splits[0].PBTime = Millis(10000)
	run.Splits[0].GoldTime = Millis(9500)
	run.Splits[0].IconPath = &icon
	run.Splits[0].GoldHistory = []SegmentHistoryEntry{{RunIndex: 2, Time: Millis(9500)}}
	run.Splits[1].PBHistory = []SegmentHistoryEntry{{RunIndex: 1, Time: None()}}
	run.AttemptHistory = []AttemptHistoryEntry{
		{RunIndex: 1, TotalTime: Millis(18000), Ended: true, Date: &date},
		{RunIndex: 2, Ended: false},
	}
	run.PBHistory = run.AttemptHistory[:1]

	data, err := json.Marshal(run)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Run
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(run, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", run, got)
	}
}

func TestRunJSONUsesNullMillis(t *testing.T) {
	run := NewRun("Game", "Any%", []string{"A"})
	run.Splits[0].PBTime = Millis(1234)
	data, err := json.Marshal(run)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"pb_time":1234`, `"gold_time":null`, `"last_time":null`, `"start_offset":null`, `"icon_path":null`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestRunUnmarshalDefaults(t *testing.T) {
	var run Run
	if err := json.Unmarshal([]byte(`{"title":"T","splits":[{"pb_time":5}]}`), &run); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if run.Category != "Category" {
		t.Fatalf("expected default category, got %q", run.Category)
	}
	if !run.AutoUpdatePB || !run.GoldSplit {
		t.Fatalf("expected default flags to be true")
	}
	if run.PerPage() != DefaultSplitsPerPage {
		t.Fatalf("expected default page size, got %d", run.PerPage())
	}
	if len(run.Splits) != 1 || run.Splits[0].Name != "New Split" {
		t.Fatalf("unexpected splits: %+v", run.Splits)
	}
	if run.Splits[0].PBTime != Millis(5) {
		t.Fatalf("unexpected pb: %+v", run.Splits[0].PBTime)
	}
	if run.Splits[0].GoldHistory == nil || run.AttemptHistory == nil {
		t.Fatalf("expected empty histories, got nil")
	}
}

func TestRunUnmarshalRejectsStringDuration(t *testing.T) {
	var run Run
	if err := json.Unmarshal([]byte(`{"splits":[{"pb_time":"00:10.000"}]}`), &run); err == nil {
		t.Fatalf("expected error for formatted duration")
	}
}

func TestNewRunNamesBlankFinalSplit(t *testing.T) {
	run := NewRun("Game", "Any%", []string{"A", "  "})
	if run.Splits[1].Name != "Final Boss" {
		t.Fatalf("expected Final Boss, got %q", run.Splits[1].Name)
	}
}

func TestCloneIsDeep(t *testing.T) {
	run := NewRun("Game", "Any%", []string{"A"})
	run.Splits[0].GoldHistory = append(run.Splits[0].GoldHistory, SegmentHistoryEntry{RunIndex: 1})
	clone := run.Clone()
	clone.Splits[0].Name = "changed"
	clone.Splits[0].GoldHistory[0].RunIndex = 9
	*clone.SplitsPerPage = 9
	if run.Splits[0].Name != "A" || run.Splits[0].GoldHistory[0].RunIndex != 1 || run.PerPage() != DefaultSplitsPerPage {
		t.Fatalf("clone shares memory with its source")
	}
}

func TestClearHistory(t *testing.T) {
	run := NewRun("Game", "Any%", []string{"A"})
	run.Attempts = 4
	run.AttemptHistory = append(run.AttemptHistory, AttemptHistoryEntry{RunIndex: 1})
	run.Splits[0].PBHistory = append(run.Splits[0].PBHistory, SegmentHistoryEntry{RunIndex: 1})
	run.Splits[0].PBTime = Millis(10)
	run.ClearHistory()
	if run.Attempts != 0 || len(run.AttemptHistory) != 0 || len(run.Splits[0].PBHistory) != 0 {
		t.Fatalf("history not cleared: %+v", run)
	}
	if run.Splits[0].PBTime != Millis(10) {
		t.Fatalf("clear history must keep times")
	}
}
