// Package library keeps the item store in step with the songs directory: it
// scans for map files, merges them into the store, measures track lengths and
// recomputes highlights and progress.
package library

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/mapdone/internal/audio"
	"github.com/platinummonkey/mapdone/internal/config"
	"github.com/platinummonkey/mapdone/internal/highlight"
	"github.com/platinummonkey/mapdone/internal/logger"
	"github.com/platinummonkey/mapdone/internal/osu"
	"github.com/platinummonkey/mapdone/internal/scan"
	"github.com/platinummonkey/mapdone/internal/state"
)

// Syncer coordinates a complete library sync
type Syncer struct {
	config     *config.Config
	logger     *logger.Logger
	store      state.Store
	prober     audio.Prober
	force      bool
	onProgress func(scan.Progress)
}

// Config holds the dependencies of a Syncer
type Config struct {
	Config *config.Config
	Logger *logger.Logger
	Store  state.Store

	// Prober measures audio files; nil disables probing and every item
	// falls back to its content duration
	Prober audio.Prober

	// Force re-parses every file regardless of its mtime
	Force bool

	// OnProgress receives scan progress snapshots
	OnProgress func(scan.Progress)
}

// New creates a new Syncer
func New(cfg *Config) (*Syncer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	if cfg.Config == nil {
		return nil, fmt.Errorf("config.Config is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	return &Syncer{
		config:     cfg.Config,
		logger:     log,
		store:      cfg.Store,
		prober:     cfg.Prober,
		force:      cfg.Force,
		onProgress: cfg.OnProgress,
	}, nil
}

// pending is an item whose file was (re)parsed during this sync
type pending struct {
	item     *state.Item
	file     *osu.ParsedFile
	audio    string
	audioMod int64
	isNew    bool
}

// Sync performs a complete scan-and-merge of the songs directory
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	log := s.logger.WithOperation("sync")
	log.WithFields("songs_dir", s.config.SongsDir).Info("Starting library sync")
	startTime := time.Now()

	result := NewResult()

	// Step 1: Load current library
	if err := s.store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	// Step 2: Collect known mtimes so unchanged files skip parsing
	known := make(map[string]int64)
	for _, it := range s.store.Items() {
		known[it.FilePath] = it.ModTime
	}

	// Step 3: Scan the songs directory
	scanned, err := scan.Scan(ctx, scan.Options{
		Root:         s.config.SongsDir,
		Known:        known,
		MapperFilter: s.config.MapperFilter,
		Force:        s.force,
		Workers:      s.config.Workers,
		OnProgress:   s.onProgress,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan songs directory: %w", err)
	}
	for _, f := range scanned.Failures {
		result.AddFailure(f.Path, f.Phase, f.Err)
	}

	// Step 4: Merge scan entries into items
	work := s.merge(scanned.Entries, result)

	// Step 5: Resolve durations, probing audio concurrently
	if err := s.resolveDurations(ctx, work); err != nil {
		return nil, err
	}

	// Step 6: Build highlights and progress, then store
	for _, p := range work {
		applyHighlights(p, s.config.IgnoreStartAndBreaks)
		s.store.Put(p.item)
		result.AddSuccess(ItemResult{
			ItemID:         p.item.ID,
			Path:           p.item.FilePath,
			Title:          p.item.Metadata.DisplayTitle(),
			Progress:       p.item.Progress,
			DurationSource: p.item.DurationSource,
			New:            p.isNew,
		})
	}
	s.refreshProgress()

	// Step 7: Drop items whose file is gone
	if s.config.PruneMissing {
		result.Pruned = s.prune(scanned.Files)
	}

	// Step 8: Persist
	s.store.UpdateLastScan()
	if err := s.store.Save(); err != nil {
		return nil, fmt.Errorf("failed to save library: %w", err)
	}

	result.Duration = time.Since(startTime)
	result.TotalFiles = scanned.Progress.Total
	result.Processed = len(work)
	result.Cached = scanned.Progress.Cached - result.refreshed
	result.Skipped = scanned.Progress.Skipped

	log.WithFields(
		"total", result.TotalFiles,
		"processed", result.Processed,
		"cached", result.Cached,
		"skipped", result.Skipped,
		"added", result.Added,
		"pruned", result.Pruned,
		"failed", result.FailureCount,
		"duration", result.Duration,
	).Info("Library sync completed")

	return result, nil
}

// merge turns scan entries into pending work. Unchanged files are reused
// unless their audio file changed, in which case they are parsed again.
func (s *Syncer) merge(entries []scan.Entry, result *Result) []*pending {
	work := make([]*pending, 0, len(entries))
	for _, e := range entries {
		existing, _ := s.store.GetByPath(e.Path)

		file := e.File
		if e.Unchanged {
			if existing == nil || !audioChanged(existing) {
				continue
			}
			pf, err := parseFile(e.Path)
			if err != nil {
				result.AddFailure(e.Path, scan.PhaseParse, err)
				continue
			}
			file = pf
			result.refreshed++
		}

		p := &pending{item: existing, file: file}
		if p.item == nil {
			p.item = state.NewItem(e.Path)
			p.isNew = true
		}
		applyFile(p.item, file, e.ModTimeMs)
		p.audio = audioPath(e.Path, file.Metadata.AudioFile)
		p.audioMod = modTimeMs(p.audio)
		work = append(work, p)
	}
	return work
}

// resolveDurations fills DurationMs and DurationSource on every pending item.
func (s *Syncer) resolveDurations(ctx context.Context, work []*pending) error {
	workers := s.config.Workers
	if workers <= 0 {
		workers = scan.DefaultWorkers()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range work {
		it := p.item

		// Reuse the measured length when the audio file is the same one
		if it.DurationSource == state.DurationAudio && it.AudioPath == p.audio &&
			it.AudioModTime == p.audioMod && p.audioMod != 0 && it.DurationMs > 0 {
			continue
		}

		if s.prober == nil || p.audio == "" || p.audioMod == 0 {
			s.fallbackDuration(p, nil)
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := s.prober.Duration(p.audio)
			if err != nil || d <= 0 {
				s.fallbackDuration(p, err)
				return nil
			}
			p.item.DurationMs = int(d.Milliseconds())
			p.item.DurationSource = state.DurationAudio
			p.item.AudioPath = p.audio
			p.item.AudioModTime = p.audioMod
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("duration probing cancelled: %w", err)
	}
	return nil
}

// fallbackDuration derives the length from the map content.
func (s *Syncer) fallbackDuration(p *pending, probeErr error) {
	if probeErr != nil && !errors.Is(probeErr, audio.ErrUnsupported) {
		s.logger.WithPath(p.audio).Debugw("audio probe failed, using content duration", "error", probeErr)
	}

	it := p.item
	it.AudioPath = p.audio
	it.AudioModTime = p.audioMod
	if end := p.file.ContentEnd(); end > 0 {
		it.DurationMs = end
		it.DurationSource = state.DurationContent
		return
	}
	it.DurationMs = 0
	it.DurationSource = state.DurationNone
}

func applyHighlights(p *pending, ignoreStartAndBreaks bool) {
	it := p.item
	if it.DurationSource == state.DurationNone || it.DurationMs <= 0 {
		it.Highlights = nil
		it.Progress = 0
		return
	}
	it.Highlights = highlight.Build(highlight.InputFrom(p.file), it.DurationMs)
	it.Progress = highlight.Progress(it.Highlights, ignoreStartAndBreaks)
}

// refreshProgress recomputes progress for all stored items so a changed
// progress mode applies to cached items too.
func (s *Syncer) refreshProgress() {
	for _, it := range s.store.Items() {
		p := highlight.Progress(it.Highlights, s.config.IgnoreStartAndBreaks)
		if math.Abs(p-it.Progress) > 1e-12 {
			it.Progress = p
			s.store.Put(it)
		}
	}
}

// prune removes items under the songs directory whose file was not found.
func (s *Syncer) prune(found []string) int {
	present := make(map[string]struct{}, len(found))
	for _, f := range found {
		present[f] = struct{}{}
	}

	pruned := 0
	for _, it := range s.store.Items() {
		if _, ok := present[it.FilePath]; ok || !within(s.config.SongsDir, it.FilePath) {
			continue
		}
		if err := s.store.Remove(it.ID); err == nil {
			s.logger.WithItem(it.ID, it.FilePath).Info("Pruned missing map")
			pruned++
		}
	}
	return pruned
}

// Rebuild re-reads one item's map file and recomputes everything derived
// from it. A measured audio duration is kept; any other duration follows the
// file's content.
func Rebuild(it *state.Item, ignoreStartAndBreaks bool) error {
	pf, err := parseFile(it.FilePath)
	if err != nil {
		return err
	}
	applyFile(it, pf, modTimeMs(it.FilePath))

	p := &pending{item: it, file: pf}
	if it.DurationSource != state.DurationAudio || it.DurationMs <= 0 {
		it.DurationMs = pf.ContentEnd()
		it.DurationSource = state.DurationContent
		if it.DurationMs <= 0 {
			it.DurationSource = state.DurationNone
		}
	}
	applyHighlights(p, ignoreStartAndBreaks)
	return nil
}

// applyFile copies what a parse yields onto the item
func applyFile(it *state.Item, pf *osu.ParsedFile, modTime int64) {
	it.Metadata = pf.Metadata
	it.ModTime = modTime
	it.ObjectCount = pf.ObjectCount()
}

func parseFile(path string) (*osu.ParsedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return osu.Parse(string(data)), nil
}

// audioChanged reports whether the stored item's audio file was replaced,
// removed or modified since it was measured.
func audioChanged(it *state.Item) bool {
	want := audioPath(it.FilePath, it.Metadata.AudioFile)
	return want != it.AudioPath || modTimeMs(want) != it.AudioModTime
}

// audioPath resolves the audio file name relative to the map's directory.
func audioPath(mapPath, audioFile string) string {
	if audioFile == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(mapPath), filepath.FromSlash(audioFile))
}

// modTimeMs returns the file's mtime in milliseconds, or 0 if it is missing.
func modTimeMs(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixMilli()
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
