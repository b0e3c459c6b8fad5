package replication

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TestJournalIgnoresEntriesWhenStopped verifies Record is a no-op before Start
func TestJournalIgnoresEntriesWhenStopped(t *testing.T) {
	j := NewJournal()
	if j.Record(JournalEntry{Decision: DecisionCreate}) {
		t.Error("Expected Record to refuse entries before Start")
	}
	if s := j.Stats(); s.Total != 0 || s.Running {
		t.Errorf("Expected an idle journal, got %+v", s)
	}
}

// TestJournalWritesJSONLines verifies entries reach the file in order
func TestJournalWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j := NewJournal()
	if err := j.Start(path); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	decisions := []Decision{DecisionCreate, DecisionRefresh, DecisionOutOfRange, DecisionDestroy}
	for i, d := range decisions {
		if !j.Record(JournalEntry{Tick: uint64(i + 1), Decision: d, Observer: "o", Target: "t"}) {
			t.Fatalf("Record %d dropped", i)
		}
	}
	j.Stop()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	var got []JournalEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e JournalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("Bad line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != len(decisions) {
		t.Fatalf("Expected %d lines, got %d", len(decisions), len(got))
	}
	for i, e := range got {
		if e.Decision != decisions[i] || e.Sequence != uint64(i+1) || e.Time == 0 {
			t.Errorf("Line %d: unexpected entry %+v", i, e)
		}
	}
}

// TestJournalRateLimitsPerObserver verifies a noisy observer is throttled
func TestJournalRateLimitsPerObserver(t *testing.T) {
	j := NewJournal()
	if err := j.Start(""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer j.Stop()

	accepted := 0
	for i := 0; i < MaxJournalPerObserver; i++ {
		if j.Record(JournalEntry{Decision: DecisionCreate, Observer: "noisy"}) {
			accepted++
		}
	}
	if accepted == MaxJournalPerObserver {
		t.Error("Expected the per-observer burst to be enforced")
	}
	if !j.Record(JournalEntry{Decision: DecisionCreate, Observer: "quiet"}) {
		t.Error("Expected another observer to be unaffected")
	}
	if j.Stats().Dropped == 0 {
		t.Error("Expected dropped entries to be counted")
	}
}

// TestJournalCountsFailedWrites verifies entries that cannot reach the file
// are counted as dropped
func TestJournalCountsFailedWrites(t *testing.T) {
	j := NewJournal()
	if err := j.Start(filepath.Join(t.TempDir(), "journal.jsonl")); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Writes to a closed file fail like a full disk would.
	j.fileMu.Lock()
	j.file.Close()
	j.fileMu.Unlock()

	const n = 3
	for i := 0; i < n; i++ {
		if !j.Record(JournalEntry{Decision: DecisionCreate, Observer: "o", Target: "t"}) {
			t.Fatalf("Record %d dropped before the write", i)
		}
	}
	j.Stop()

	if s := j.Stats(); s.Dropped != n {
		t.Errorf("Expected %d failed writes counted as dropped, got %+v", n, s)
	}
}
