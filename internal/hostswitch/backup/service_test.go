package backup

// Tests for timestamped, best-effort backups of the live hosts file.
//
// Focus: FileName (deterministic, filename-safe), Backup (content, collisions,
// failure is swallowed), List (ordering, filtering).

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/OpenGG/hostswitch/internal/hostswitch/storage"
)

const (
	testBackupDir = "/cfg/backups"
	testHosts     = "/etc/hosts"
)

var fixedTime = time.Date(2024, 5, 1, 10, 20, 30, 123_000_000, time.UTC)

func newTestService(t *testing.T) (*Service, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	svc := New(storage.New(fs), testBackupDir, testHosts, nil)
	svc.SetNow(func() time.Time { return fixedTime })
	return svc, fs
}

func TestFileName(t *testing.T) {
	got := FileName(fixedTime)
	if got != "hosts_2024-05-01T10-20-30-123Z" {
		t.Fatalf("FileName() = %q", got)
	}
	if strings.ContainsAny(got, `:.\/`) {
		t.Errorf("file name contains unsafe characters: %q", got)
	}

	local := fixedTime.In(time.FixedZone("UTC+9", 9*3600))
	if FileName(local) != got {
		t.Errorf("FileName must normalise to UTC, got %q", FileName(local))
	}
}

func TestBackupCopiesLiveFile(t *testing.T) {
	svc, fs := newTestService(t)
	if err := afero.WriteFile(fs, testHosts, []byte("10.0.0.1 edited\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	path, ok := svc.Backup()
	if !ok {
		t.Fatal("expected backup to succeed")
	}
	if want := filepath.Join(testBackupDir, "hosts_2024-05-01T10-20-30-123Z"); path != want {
		t.Errorf("backup path = %q, want %q", path, want)
	}
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(content) != "10.0.0.1 edited\n" {
		t.Errorf("backup content = %q", content)
	}
}

func TestBackupNeverOverwrites(t *testing.T) {
	svc, fs := newTestService(t)
	if err := afero.WriteFile(fs, testHosts, []byte("first"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	first, ok := svc.Backup()
	if !ok {
		t.Fatal("first backup failed")
	}

	if err := afero.WriteFile(fs, testHosts, []byte("second"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	second, ok := svc.Backup()
	if !ok {
		t.Fatal("second backup failed")
	}

	if first == second {
		t.Fatalf("same-millisecond backups must get distinct names, both %q", first)
	}
	if !strings.HasSuffix(second, "_1") {
		t.Errorf("expected collision suffix, got %q", second)
	}
	content, _ := afero.ReadFile(fs, first)
	if string(content) != "first" {
		t.Errorf("first backup was overwritten: %q", content)
	}
}

func TestBackupMissingLiveFile(t *testing.T) {
	var logs bytes.Buffer
	fs := afero.NewMemMapFs()
	svc := New(storage.New(fs), testBackupDir, testHosts, slog.New(slog.NewTextHandler(&logs, nil)))

	path, ok := svc.Backup()
	if ok || path != "" {
		t.Fatalf("expected no backup, got %q ok=%v", path, ok)
	}
	if !strings.Contains(logs.String(), "skipping backup") {
		t.Errorf("expected warning to be logged, got %q", logs.String())
	}
}

func TestBackupFailureIsSwallowed(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := afero.WriteFile(base, testHosts, []byte("content"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	svc := New(storage.New(afero.NewReadOnlyFs(base)), testBackupDir, testHosts, nil)

	path, ok := svc.Backup()
	if ok || path != "" {
		t.Fatalf("expected failed backup to report ok=false, got %q", path)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, fs := newTestService(t)
	names := []string{
		"hosts_2024-01-01T00-00-00-000Z",
		"hosts_2024-03-01T00-00-00-000Z",
		"hosts_2024-02-01T00-00-00-000Z",
		"hosts_2024-03-01T00-00-00-000Z_1",
		"hosts_2024-04-01T00-00-00-000Z.tmp",
		"unrelated.txt",
	}
	for _, name := range names {
		if err := afero.WriteFile(fs, filepath.Join(testBackupDir, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	entries, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name)
	}
	want := []string{
		"hosts_2024-03-01T00-00-00-000Z_1",
		"hosts_2024-03-01T00-00-00-000Z",
		"hosts_2024-02-01T00-00-00-000Z",
		"hosts_2024-01-01T00-00-00-000Z",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestListMissingDirectory(t *testing.T) {
	svc, _ := newTestService(t)

	entries, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
