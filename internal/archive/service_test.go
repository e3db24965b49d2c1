package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestSnapshotLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)

	first, err := svc.Commit("user-1", []byte(`{"todos":[]}`), "Initial snapshot")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if first.Hash == "" {
		t.Fatal("expected commit hash")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "user-1")); err != nil {
		t.Fatalf("repo directory missing: %v", err)
	}

	second, err := svc.Commit("user-1", []byte(`{"todos":[{"id":"t1"}]}`), "Added todo")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if second.Hash == first.Hash {
		t.Fatal("expected a new commit for changed payload")
	}

	history, err := svc.History("user-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Hash != second.Hash {
		t.Fatalf("history should be newest first: %+v", history)
	}

	payload, err := svc.Snapshot("user-1", first.Hash)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if string(payload) != "{\"todos\":[]}\n" {
		t.Fatalf("snapshot payload = %q", payload)
	}
}

func TestCommitUnchangedPayloadIsNoOp(t *testing.T) {
	svc := New(t.TempDir())

	first, err := svc.Commit("user-1", []byte(`{"v":1}`), "one")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	again, err := svc.Commit("user-1", []byte(`{"v":1}`), "two")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if again.Hash != first.Hash {
		t.Fatalf("identical payload must not create a commit: %s vs %s", again.Hash, first.Hash)
	}

	history, err := svc.History("user-1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
}

func TestHistoryForUnknownUser(t *testing.T) {
	svc := New(t.TempDir())

	history, err := svc.History("nobody", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	svc := New(t.TempDir())

	if _, err := svc.Commit("user-a", []byte(`{"owner":"a"}`), "a"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if _, err := svc.Commit("user-b", []byte(`{"owner":"b"}`), "b"); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	historyA, err := svc.History("user-a", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(historyA) != 1 || historyA[0].Message != "a" {
		t.Fatalf("user-a history = %+v", historyA)
	}
}

func TestConcurrentCommitsSameUser(t *testing.T) {
	svc := New(t.TempDir())

	const writers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			payload := []byte(fmt.Sprintf(`{"rev":%d}`, idx))
			if _, err := svc.Commit("user-1", payload, fmt.Sprintf("Commit %02d", idx)); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("Commit() concurrent error = %v", err)
		}
	}

	history, err := svc.History("user-1", 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != writers {
		t.Fatalf("expected %d commits, got %d", writers, len(history))
	}
}
