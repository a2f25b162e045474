package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/platinummonkey/mapdone/internal/audio"
	"github.com/platinummonkey/mapdone/internal/config"
	"github.com/platinummonkey/mapdone/internal/library"
	"github.com/platinummonkey/mapdone/internal/logger"
	"github.com/platinummonkey/mapdone/internal/state"
)

// writeMap writes a small two-object map plus a placeholder audio file
func writeMap(t *testing.T, dir, name, creator, version string) string {
	t.Helper()
	src := strings.Join([]string{
		"osu file format v14",
		"",
		"[General]",
		"AudioFilename: audio.mp3",
		"",
		"[Editor]",
		"Bookmarks: 1500,2500",
		"",
		"[Metadata]",
		"Title:Song",
		"Artist:Band",
		"Creator:" + creator,
		"Version:" + version,
		"BeatmapSetID:123456",
		"",
		"[Events]",
		"2,1200,1800",
		"",
		"[HitObjects]",
		"256,192,1000,1,0",
		"256,192,2000,12,0,3000",
		"",
	}, "\n")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create map directory: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("Failed to write map: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "audio.mp3"), []byte("not really audio"), 0644); err != nil {
		t.Fatalf("Failed to write audio: %v", err)
	}
	return path
}

// TestConfigLibraryIntegration loads configuration from a file, scans a
// songs folder into each backend and reads the result back
func TestConfigLibraryIntegration(t *testing.T) {
	for _, backend := range []string{"json", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			tmpDir := t.TempDir()
			songs := filepath.Join(tmpDir, "Songs")
			mine := writeMap(t, filepath.Join(songs, "123456 Band - Song"), "Band - Song (me) [Insane].osu", "me", "Insane")
			writeMap(t, filepath.Join(songs, "123456 Band - Song"), "Band - Song (other) [Easy].osu", "other", "Easy")

			configPath := filepath.Join(tmpDir, "config.yaml")
			configContent := `
songs-dir: ` + songs + `
state-backend: ` + backend + `
state-file: ` + filepath.Join(tmpDir, "state", "library."+backend) + `
mapper-filter: me
log-level: warn
`
			if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}

			cfg, err := config.Load(configPath, nil)
			if err != nil {
				t.Fatalf("Failed to load config: %v", err)
			}

			store, err := state.LoadOrCreate(cfg.StateBackend, cfg.StateFile)
			if err != nil {
				t.Fatalf("Failed to open library: %v", err)
			}

			syncer, err := library.New(&library.Config{
				Config: cfg,
				Logger: logger.NewNop(),
				Store:  store,
				Prober: audio.NewProber(),
			})
			if err != nil {
				t.Fatalf("Failed to create syncer: %v", err)
			}

			result, err := syncer.Sync(context.Background())
			if err != nil {
				t.Fatalf("Sync failed: %v", err)
			}
			if result.TotalFiles != 2 || result.Skipped != 1 || result.Added != 1 {
				t.Errorf("unexpected result:\n%s", result.Summary())
			}
			if err := store.Close(); err != nil {
				t.Fatalf("Failed to close library: %v", err)
			}

			// Reopen and verify
			reopened, err := state.LoadOrCreate(cfg.StateBackend, cfg.StateFile)
			if err != nil {
				t.Fatalf("Failed to reopen library: %v", err)
			}
			defer func() { _ = reopened.Close() }()

			it, err := reopened.GetByPath(mine)
			if err != nil {
				t.Fatalf("item should be persisted: %v", err)
			}

			if it.Metadata.BeatmapSet != "https://osu.ppy.sh/beatmapsets/123456" {
				t.Errorf("unexpected beatmap set %q", it.Metadata.BeatmapSet)
			}

			// The placeholder audio cannot be decoded, so the length comes from the map
			if it.DurationSource != state.DurationContent || it.DurationMs != 3000 {
				t.Errorf("expected content duration 3000, got %s %d", it.DurationSource, it.DurationMs)
			}

			// One break, two object runs, two bookmarks
			kinds := make([]string, 0, len(it.Highlights))
			for _, r := range it.Highlights {
				kinds = append(kinds, r.Kind.Letter())
			}
			if got := strings.Join(kinds, ""); got != "bookk" {
				t.Errorf("expected highlight kinds bookk, got %s", got)
			}

			if it.Progress <= 0 || it.Progress > 1 {
				t.Errorf("progress should be in (0, 1], got %f", it.Progress)
			}

			if reopened.LastScan().IsZero() {
				t.Error("LastScan should be persisted")
			}
		})
	}
}

// TestLoggerIntegration tests logger initialization and usage across components
func TestLoggerIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	log, err := logger.New(&logger.Config{
		Level:      "debug",
		Format:     "json",
		OutputPath: logFile,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	log.Info("Starting integration test")
	log.WithFields("component", "config").Debug("Loading configuration")
	log.WithFields("component", "state").Info("Initializing library")
	log.WithItem("item-123", "/songs/a.osu").WithOperation("scan").Info("Processing map")

	if err := log.Sync(); err != nil {
		t.Logf("Logger sync warning: %v", err)
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	for _, want := range []string{`"path":"/songs/a.osu"`, `"item_id":"item-123"`, `"operation":"scan"`} {
		if !strings.Contains(string(content), want) {
			t.Errorf("log file should contain %s\n%s", want, content)
		}
	}
}

// TestMultipleItemWorkflow tests managing several items through the store
func TestMultipleItemWorkflow(t *testing.T) {
	tmpDir := t.TempDir()
	stateFile := filepath.Join(tmpDir, "library.json")

	store := state.NewJSONStore(stateFile)

	paths := []string{"/songs/a.osu", "/songs/b.osu", "/songs/c.osu"}
	ids := make([]string, 0, len(paths))
	for i, p := range paths {
		it := state.NewItem(p)
		it.AddedAt = time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC)
		store.Put(it)
		ids = append(ids, it.ID)
	}

	done, err := store.Get(ids[0])
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	done.MarkCompleted()
	store.Put(done)

	due, err := store.Find("/songs/b.osu")
	if err != nil {
		t.Fatalf("Find by path failed: %v", err)
	}
	due.SetDue(time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC))
	store.Put(due)

	if err := store.Remove(ids[2]); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if err := store.Save(); err != nil {
		t.Fatalf("Failed to save library: %v", err)
	}

	reloaded := state.NewJSONStore(stateFile)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Failed to load library: %v", err)
	}

	if reloaded.Count() != 2 {
		t.Fatalf("Expected 2 items, got %d", reloaded.Count())
	}

	items := reloaded.Items()
	if items[0].FilePath != "/songs/a.osu" || items[0].Status != state.StatusCompleted {
		t.Errorf("unexpected first item %+v", items[0])
	}
	if !items[1].HasDue() || items[1].DueDate.Format("2006-01-02") != "2026-02-14" {
		t.Errorf("unexpected due date %v", items[1].DueDate)
	}

	if _, err := reloaded.Find(ids[1][:8]); err != nil {
		t.Errorf("Find by prefix failed: %v", err)
	}
}
