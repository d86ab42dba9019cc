package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ghalamif/TagSync/internal/domain"
	"github.com/ghalamif/TagSync/internal/ports"
)

func TestFileJournalAppendIterateAndReopen(t *testing.T) {
	dir := t.TempDir()

	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}

	e1 := &domain.Event{RunID: "run-1", Stimulation: domain.Stimulation{Identifier: 5, Date: 100}}
	e2 := &domain.Event{RunID: "run-1", Stimulation: domain.Stimulation{Identifier: domain.StimulationIncorrect, Date: 100, Duration: 7}}

	id1, err := j.Append(e1)
	if err != nil || id1 != 1 || e1.Seq != 1 {
		t.Fatalf("append event 1: %v id=%d seq=%d", err, id1, e1.Seq)
	}
	id2, err := j.Append(e2)
	if err != nil || id2 != 2 {
		t.Fatalf("append event 2: %v id=%d", err, id2)
	}

	var iterated []domain.Event
	if err := j.Iterate(1, func(id ports.EntryID, e domain.Event) error {
		iterated = append(iterated, e)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(iterated) != 2 {
		t.Fatalf("expected 2 events, got %d", len(iterated))
	}
	if iterated[1].Duration != 7 || iterated[1].RunID != "run-1" || iterated[1].Seq != 2 {
		t.Fatalf("unexpected second event: %+v", iterated[1])
	}

	if err := j.Commit(id1); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}
	if _, err := j.Append(&domain.Event{}); err == nil {
		t.Fatalf("expected append after close to fail")
	}

	j2, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("reopen journal: %v", err)
	}

	stats := j2.Stats()
	if stats.LatestAppended != id2 {
		t.Fatalf("expected latest appended %d, got %d", id2, stats.LatestAppended)
	}
	if stats.OldestUncommitted != id2 {
		t.Fatalf("expected oldest uncommitted %d, got %d", id2, stats.OldestUncommitted)
	}

	var uncommitted []uint64
	if err := j2.Iterate(stats.OldestUncommitted, func(id ports.EntryID, e domain.Event) error {
		uncommitted = append(uncommitted, e.Seq)
		return nil
	}); err != nil {
		t.Fatalf("iterate after reopen: %v", err)
	}
	if len(uncommitted) != 1 || uncommitted[0] != 2 {
		t.Fatalf("expected only entry 2 to be uncommitted, got %v", uncommitted)
	}

	id3, err := j2.Append(&domain.Event{RunID: "run-2"})
	if err != nil || id3 != 3 {
		t.Fatalf("append after reopen: %v id=%d", err, id3)
	}
	if err := j2.Close(); err != nil {
		t.Fatalf("close journal 2: %v", err)
	}
}

func TestFileJournalTruncatesTornTail(t *testing.T) {
	dir := t.TempDir()

	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	if _, err := j.Append(&domain.Event{RunID: "r", Stimulation: domain.Stimulation{Identifier: 1}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	sizeBefore := j.Stats().SizeBytes

	path := filepath.Join(dir, "stimulations.log")
	if err := appendGarbage(path); err != nil {
		t.Fatalf("append garbage: %v", err)
	}

	j2, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("reopen after garbage: %v", err)
	}
	defer j2.Close()

	if got := j2.Stats().SizeBytes; got != sizeBefore {
		t.Fatalf("expected torn tail to be cut back to %d bytes, got %d", sizeBefore, got)
	}
	if got := j2.Stats().LatestAppended; got != 1 {
		t.Fatalf("expected latest appended 1, got %d", got)
	}
}

func appendGarbage(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte{0xFF, 0xAA})
	return err
}

func TestFileJournalTruncateCommitted(t *testing.T) {
	dir := t.TempDir()

	j, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if _, err := j.Append(&domain.Event{RunID: "run", Stimulation: domain.Stimulation{Identifier: uint64(i)}}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if freed, err := j.TruncateCommitted(); err != nil || freed != 0 {
		t.Fatalf("expected nothing to reclaim before commit, freed=%d err=%v", freed, err)
	}

	before := j.Stats().SizeBytes
	if err := j.Commit(2); err != nil {
		t.Fatalf("commit: %v", err)
	}
	freed, err := j.TruncateCommitted()
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if freed <= 0 || j.Stats().SizeBytes != before-freed {
		t.Fatalf("unexpected reclaim: freed=%d before=%d after=%d", freed, before, j.Stats().SizeBytes)
	}
	if again, _ := j.TruncateCommitted(); again != 0 {
		t.Fatalf("expected second truncate to be a no-op, freed=%d", again)
	}

	id, err := j.Append(&domain.Event{RunID: "run", Stimulation: domain.Stimulation{Identifier: 4}})
	if err != nil || id != 4 {
		t.Fatalf("append after truncate: id=%d err=%v", id, err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	j2, err := NewFileJournal(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()

	var ids []ports.EntryID
	if err := j2.Iterate(1, func(id ports.EntryID, e domain.Event) error {
		if uint64(id) != e.Identifier {
			t.Fatalf("entry %d carries identifier %d", id, e.Identifier)
		}
		ids = append(ids, id)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 4 {
		t.Fatalf("expected entries 3 and 4 to survive, got %v", ids)
	}
	if st := j2.Stats(); st.LatestAppended != 4 || st.OldestUncommitted != 3 {
		t.Fatalf("unexpected stats after reopen: %+v", st)
	}
}
