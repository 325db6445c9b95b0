package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/OpenGG/hostswitch/internal/hostswitch/storage"
)

const (
	testState = "/cfg/current.json"
	testHosts = "/etc/hosts"
)

func newTestTracker(t *testing.T) (*Tracker, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return New(storage.New(fs), testState, testHosts, nil), fs
}

func writeLive(t *testing.T, fs afero.Fs, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, testHosts, []byte(content), 0o644); err != nil {
		t.Fatalf("write live file: %v", err)
	}
}

func TestActiveWithoutRecord(t *testing.T) {
	tracker, _ := newTestTracker(t)

	if got := tracker.Active(); got != "" {
		t.Fatalf("expected no active profile, got %q", got)
	}
	if !tracker.IsDrifted() {
		t.Fatal("missing record must count as drifted")
	}
}

func TestSetActiveThenNotDrifted(t *testing.T) {
	tracker, fs := newTestTracker(t)
	writeLive(t, fs, "127.0.0.1 localhost\n")
	fixed := time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)
	tracker.SetNow(func() time.Time { return fixed })

	if err := tracker.SetActive("dev"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if got := tracker.Active(); got != "dev" {
		t.Fatalf("Active() = %q, want dev", got)
	}
	if tracker.IsDrifted() {
		t.Fatal("expected no drift right after SetActive")
	}

	rec, ok := tracker.Record()
	if !ok {
		t.Fatal("expected record")
	}
	if rec.Checksum == nil || *rec.Checksum != Checksum([]byte("127.0.0.1 localhost\n")) {
		t.Errorf("unexpected checksum %v", rec.Checksum)
	}
	if !rec.UpdatedAt.Equal(fixed) {
		t.Errorf("UpdatedAt = %v, want %v", rec.UpdatedAt, fixed)
	}
}

func TestDriftAfterExternalEdit(t *testing.T) {
	tracker, fs := newTestTracker(t)
	writeLive(t, fs, "original\n")
	if err := tracker.SetActive("dev"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	writeLive(t, fs, "original\n10.0.0.1 extra\n")
	if !tracker.IsDrifted() {
		t.Fatal("expected drift after live file changed")
	}

	writeLive(t, fs, "original\n")
	if tracker.IsDrifted() {
		t.Fatal("restoring identical bytes must clear drift")
	}
}

func TestDriftWhenLiveFileDisappears(t *testing.T) {
	tracker, fs := newTestTracker(t)
	writeLive(t, fs, "content")
	if err := tracker.SetActive("dev"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := fs.Remove(testHosts); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !tracker.IsDrifted() {
		t.Fatal("unreadable live file must count as drifted")
	}
}

func TestSetActiveWithUnreadableLiveFile(t *testing.T) {
	tracker, fs := newTestTracker(t)

	if err := tracker.SetActive("dev"); err != nil {
		t.Fatalf("SetActive must not fail on unreadable live file: %v", err)
	}
	rec, ok := tracker.Record()
	if !ok {
		t.Fatal("expected record")
	}
	if rec.Checksum != nil {
		t.Errorf("expected null checksum, got %q", *rec.Checksum)
	}
	if tracker.Active() != "dev" {
		t.Errorf("expected dev active")
	}

	raw, err := afero.ReadFile(fs, testState)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("state must be JSON: %v", err)
	}
	if v, present := generic["checksum"]; !present || v != nil {
		t.Errorf("expected explicit null checksum, got %v (present=%v)", v, present)
	}

	writeLive(t, fs, "anything")
	if !tracker.IsDrifted() {
		t.Error("null checksum must count as drifted")
	}
}

func TestCorruptRecordFailsOpen(t *testing.T) {
	tracker, fs := newTestTracker(t)
	writeLive(t, fs, "content")
	if err := afero.WriteFile(fs, testState, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write state: %v", err)
	}

	if got := tracker.Active(); got != "" {
		t.Errorf("corrupt record must read as no active profile, got %q", got)
	}
	if !tracker.IsDrifted() {
		t.Error("corrupt record must count as drifted")
	}
}

func TestReadsRecordWrittenByOtherTools(t *testing.T) {
	tracker, fs := newTestTracker(t)
	writeLive(t, fs, "content")
	sum := Checksum([]byte("content"))
	raw := `{"profile":"legacy","checksum":"` + sum + `","updatedAt":"2024-01-02T03:04:05.678Z"}`
	if err := afero.WriteFile(fs, testState, []byte(raw), 0o600); err != nil {
		t.Fatalf("write state: %v", err)
	}

	if got := tracker.Active(); got != "legacy" {
		t.Errorf("Active() = %q, want legacy", got)
	}
	if tracker.IsDrifted() {
		t.Error("matching checksum must not count as drift")
	}

	nullProfile := `{"profile":null,"checksum":null,"updatedAt":"2024-01-02T03:04:05.678Z"}`
	if err := afero.WriteFile(fs, testState, []byte(nullProfile), 0o600); err != nil {
		t.Fatalf("write state: %v", err)
	}
	if got := tracker.Active(); got != "" {
		t.Errorf("null profile must read as none, got %q", got)
	}
}

func TestChecksumDeterministic(t *testing.T) {
	a := Checksum([]byte("same bytes"))
	b := Checksum([]byte("same bytes"))
	if a != b {
		t.Fatal("checksum should be deterministic")
	}
	if len(a) != 64 {
		t.Errorf("expected SHA-256 hex (64 chars), got %d", len(a))
	}
	if a == Checksum([]byte("other bytes")) {
		t.Error("different content should hash differently")
	}
}
