package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// newTestDB creates an in-memory SQLite database for testing
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := InitDB(Config{
		DatabasePath: ":memory:",
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return db
}

// createTestInstall creates a RuntimeInstall with default test values
func createTestInstall(installPath string, major int, installedAt time.Time) *RuntimeInstall {
	return &RuntimeInstall{
		ImageType:      "jdk",
		MajorVersion:   major,
		Release:        fmt.Sprintf("jdk-%d.0.1+1", major),
		OS:             "linux",
		Arch:           "x64",
		ArchiveName:    fmt.Sprintf("OpenJDK%dU-jdk_x64_linux_hotspot.tar.gz", major),
		Checksum:       "abc123def456",
		SourceURL:      "https://github.com/adoptium/releases/download/jdk.tar.gz",
		Catalog:        "adoptium",
		InstallPath:    installPath,
		ExecutablePath: installPath + "/runtime/jdk-17/bin/java",
		InstalledAt:    installedAt,
	}
}

func TestInitDB(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "memory database", cfg: Config{DatabasePath: ":memory:"}, wantErr: false},
		{name: "file database", cfg: Config{DatabasePath: t.TempDir() + "/history.db", LogLevel: "error"}, wantErr: false},
		{name: "empty path", cfg: Config{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := InitDB(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("InitDB() error = %v, wantErr %v", err, tt.wantErr)
			}
			if db != nil {
				if err := db.Close(); err != nil {
					t.Errorf("Close() error = %v", err)
				}
			}
		})
	}
}

func TestRecordInstall(t *testing.T) {
	db := newTestDB(t)

	install := createTestInstall("/games/a", 17, time.Time{})
	if err := db.RecordInstall(install); err != nil {
		t.Fatalf("RecordInstall() error = %v", err)
	}
	if install.ID == 0 {
		t.Error("RecordInstall() did not assign an ID")
	}
	if install.InstalledAt.IsZero() {
		t.Error("RecordInstall() did not default InstalledAt")
	}

	if err := db.RecordInstall(nil); !errors.Is(err, ErrNilRecord) {
		t.Errorf("RecordInstall(nil) error = %v, want ErrNilRecord", err)
	}
}

func TestLatestInstall(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	older := createTestInstall("/games/a", 17, now.Add(-2*time.Hour))
	older.Release = "jdk-17.0.7+7"
	newer := createTestInstall("/games/a", 17, now)
	newer.Release = "jdk-17.0.8+7"
	other := createTestInstall("/games/b", 17, now.Add(time.Hour))

	for _, in := range []*RuntimeInstall{older, newer, other} {
		if err := db.RecordInstall(in); err != nil {
			t.Fatalf("RecordInstall() error = %v", err)
		}
	}

	tests := []struct {
		name        string
		installPath string
		major       int
		wantRelease string
		wantErr     error
	}{
		{name: "newest wins", installPath: "/games/a", major: 17, wantRelease: "jdk-17.0.8+7"},
		{name: "other install path", installPath: "/games/b", major: 17, wantRelease: other.Release},
		{name: "unknown major", installPath: "/games/a", major: 21, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.LatestInstall(tt.installPath, "jdk", tt.major)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("LatestInstall() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LatestInstall() error = %v", err)
			}
			if got.Release != tt.wantRelease {
				t.Errorf("LatestInstall() release = %q, want %q", got.Release, tt.wantRelease)
			}
		})
	}
}

func TestListInstalls(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	for i, major := range []int{11, 17, 21} {
		if err := db.RecordInstall(createTestInstall("/games/a", major, now.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("RecordInstall() error = %v", err)
		}
	}

	installs, err := db.ListInstalls()
	if err != nil {
		t.Fatalf("ListInstalls() error = %v", err)
	}
	if len(installs) != 3 {
		t.Fatalf("ListInstalls() = %d installs, want 3", len(installs))
	}
	if installs[0].MajorVersion != 21 {
		t.Errorf("ListInstalls()[0] major = %d, want newest (21)", installs[0].MajorVersion)
	}
}

func TestSyncRunLifecycle(t *testing.T) {
	db := newTestDB(t)

	run := &SyncRun{
		RunID:       "0b9f7c1e-run",
		ManifestURL: "https://example.com/manifest.json",
		InstallPath: "/games/a",
	}
	if err := db.StartSyncRun(run); err != nil {
		t.Fatalf("StartSyncRun() error = %v", err)
	}

	got, err := db.GetSyncRun(run.RunID)
	if err != nil {
		t.Fatalf("GetSyncRun() error = %v", err)
	}
	if got.Status != StatusRunning || got.FinishedAt != nil {
		t.Errorf("started run = %+v", got)
	}

	counts := SyncCounts{Removed: 1, Missing: 3, Downloaded: 3, Ignored: 2}
	if err := db.FinishSyncRun(run.RunID, StatusSuccess, counts, ""); err != nil {
		t.Fatalf("FinishSyncRun() error = %v", err)
	}

	got, err = db.GetSyncRun(run.RunID)
	if err != nil {
		t.Fatalf("GetSyncRun() error = %v", err)
	}
	if got.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", got.Status, StatusSuccess)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt not set")
	}
	if got.Removed != 1 || got.Missing != 3 || got.Downloaded != 3 || got.Ignored != 2 {
		t.Errorf("counts = %+v", got)
	}
}

func TestSyncRunErrors(t *testing.T) {
	db := newTestDB(t)

	tests := []struct {
		name string
		fn   func() error
		want error
	}{
		{name: "start nil", fn: func() error { return db.StartSyncRun(nil) }, want: ErrNilRecord},
		{name: "start without id", fn: func() error { return db.StartSyncRun(&SyncRun{InstallPath: "/x"}) }},
		{name: "finish unknown", fn: func() error { return db.FinishSyncRun("missing", StatusFailed, SyncCounts{}, "boom") }, want: ErrNotFound},
		{name: "get unknown", fn: func() error { _, err := db.GetSyncRun("missing"); return err }, want: ErrNotFound},
		{name: "get empty", fn: func() error { _, err := db.GetSyncRun(""); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSyncRunDuplicateID(t *testing.T) {
	db := newTestDB(t)

	if err := db.StartSyncRun(&SyncRun{RunID: "dup", InstallPath: "/x"}); err != nil {
		t.Fatalf("StartSyncRun() error = %v", err)
	}
	if err := db.StartSyncRun(&SyncRun{RunID: "dup", InstallPath: "/x"}); err == nil {
		t.Error("StartSyncRun() with duplicate run ID should fail")
	}
}

func TestListSyncRuns(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	for i := 0; i < 4; i++ {
		run := &SyncRun{
			RunID:       fmt.Sprintf("run-%d", i),
			InstallPath: "/games/a",
			StartedAt:   now.Add(time.Duration(i) * time.Minute),
		}
		if err := db.StartSyncRun(run); err != nil {
			t.Fatalf("StartSyncRun() error = %v", err)
		}
	}

	all, err := db.ListSyncRuns(0)
	if err != nil {
		t.Fatalf("ListSyncRuns(0) error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("ListSyncRuns(0) = %d runs, want 4", len(all))
	}

	limited, err := db.ListSyncRuns(2)
	if err != nil {
		t.Fatalf("ListSyncRuns(2) error = %v", err)
	}
	if len(limited) != 2 || limited[0].RunID != "run-3" {
		t.Errorf("ListSyncRuns(2) = %v", limited)
	}
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t)

	if err := db.RecordInstall(createTestInstall("/games/a", 17, time.Now())); err != nil {
		t.Fatalf("RecordInstall() error = %v", err)
	}
	if err := db.StartSyncRun(&SyncRun{RunID: "r1", InstallPath: "/games/a"}); err != nil {
		t.Fatalf("StartSyncRun() error = %v", err)
	}
	if err := db.StartSyncRun(&SyncRun{RunID: "r2", InstallPath: "/games/a"}); err != nil {
		t.Fatalf("StartSyncRun() error = %v", err)
	}
	if err := db.FinishSyncRun("r2", StatusFailed, SyncCounts{}, "manifest unavailable"); err != nil {
		t.Fatalf("FinishSyncRun() error = %v", err)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats["total_installs"] != int64(1) {
		t.Errorf("total_installs = %v, want 1", stats["total_installs"])
	}
	if stats["total_sync_runs"] != int64(2) {
		t.Errorf("total_sync_runs = %v, want 2", stats["total_sync_runs"])
	}
}
