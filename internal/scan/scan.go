// Package scan walks a songs directory and parses every map file it finds on
// a small bounded pool of workers.
package scan

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/mapdone/internal/logger"
	"github.com/platinummonkey/mapdone/internal/osu"
)

const (
	// MaxWorkers caps the default worker count.
	MaxWorkers = 4

	// HeaderReadSize is how much of a file is read for the mapper prefilter.
	HeaderReadSize = 16 << 10

	mapExt = ".osu"
)

// Phase names the step at which a file failed.
type Phase string

const (
	PhaseStat  Phase = "stat"
	PhaseParse Phase = "parse"
)

// Failure is a per-file error. It never aborts the batch.
type Failure struct {
	Path  string
	Phase Phase
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Phase, f.Path, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Entry is the scan result for one file that passed the filter.
type Entry struct {
	Path      string
	ModTimeMs int64

	// Unchanged is set when the file matches its known mtime. File is nil
	// and the caller reuses what it stored earlier.
	Unchanged bool
	File      *osu.ParsedFile
}

// Progress is a snapshot of the collector counters.
type Progress struct {
	Total     int
	Processed int
	Cached    int
	Skipped   int
	Errored   int
}

// Done reports how many files have been handled in any way.
func (p Progress) Done() int {
	return p.Processed + p.Cached + p.Skipped + p.Errored
}

// Options configures one scan.
type Options struct {
	Root string

	// Known maps file path to the mtime (ms) seen at the last scan.
	Known map[string]int64

	// MapperFilter keeps only files whose creator or version contains it.
	MapperFilter string

	// Force re-parses files even when their mtime is unchanged.
	Force bool

	// Workers defaults to min(NumCPU, MaxWorkers).
	Workers int

	// OnProgress is called from the collector goroutine after every file.
	OnProgress func(Progress)

	Logger *logger.Logger
}

// Result is the outcome of a scan.
type Result struct {
	// Files lists every map file found under the root, sorted.
	Files    []string
	Entries  []Entry
	Failures []Failure
	Progress Progress
}

type eventKind int

const (
	evParsed eventKind = iota
	evCached
	evSkipped
	evFailed
)

type event struct {
	kind    eventKind
	entry   Entry
	failure Failure
}

// Scan finds and parses the map files under opts.Root. Per-file problems are
// reported in Result.Failures. The returned error is only set when the root
// cannot be walked or ctx is cancelled.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithOperation("scan")

	files, err := findMaps(opts.Root, log)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	workers = min(workers, max(1, len(files)))

	res := &Result{Files: files}
	events := make(chan event, workers*2)
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		p := Progress{Total: len(files)}
		for ev := range events {
			switch ev.kind {
			case evParsed:
				p.Processed++
				res.Entries = append(res.Entries, ev.entry)
			case evCached:
				p.Cached++
				res.Entries = append(res.Entries, ev.entry)
			case evSkipped:
				p.Skipped++
			case evFailed:
				p.Errored++
				res.Failures = append(res.Failures, ev.failure)
				log.WithFailure(ev.failure.Path, string(ev.failure.Phase), ev.failure.Err).Warn("map file failed")
			}
			if opts.OnProgress != nil {
				opts.OnProgress(p)
			}
		}
		res.Progress = p
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, chunk := range partition(files, workers) {
		g.Go(func() error {
			for _, path := range chunk {
				if err := gctx.Err(); err != nil {
					return err
				}
				events <- processFile(path, opts)
			}
			return nil
		})
	}
	werr := g.Wait()
	close(events)
	<-collected

	if werr != nil {
		return nil, fmt.Errorf("scan cancelled: %w", werr)
	}

	sort.Slice(res.Entries, func(i, j int) bool { return res.Entries[i].Path < res.Entries[j].Path })
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Path < res.Failures[j].Path })

	log.Infow("scan finished",
		"total", res.Progress.Total,
		"processed", res.Progress.Processed,
		"cached", res.Progress.Cached,
		"skipped", res.Progress.Skipped,
		"errored", res.Progress.Errored,
	)
	return res, nil
}

// DefaultWorkers is min(NumCPU, MaxWorkers).
func DefaultWorkers() int {
	return max(1, min(runtime.NumCPU(), MaxWorkers))
}

// findMaps returns every map file below root in lexical order. Unreadable
// subdirectories are logged and skipped.
func findMaps(root string, log *logger.Logger) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat songs directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("songs path %s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.WithPath(path).Warnw("skipping unreadable path", "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), mapExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk songs directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// partition splits files into at most n contiguous, disjoint chunks.
func partition(files []string, n int) [][]string {
	if len(files) == 0 || n <= 0 {
		return nil
	}
	size := (len(files) + n - 1) / n
	chunks := make([][]string, 0, n)
	for start := 0; start < len(files); start += size {
		chunks = append(chunks, files[start:min(start+size, len(files))])
	}
	return chunks
}

func processFile(path string, opts Options) (ev event) {
	fail := func(phase Phase, err error) event {
		return event{kind: evFailed, failure: Failure{Path: path, Phase: phase, Err: err}}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fail(PhaseStat, err)
	}
	mtime := info.ModTime().UnixMilli()

	if known, ok := opts.Known[path]; ok && known == mtime && !opts.Force {
		return event{kind: evCached, entry: Entry{Path: path, ModTimeMs: mtime, Unchanged: true}}
	}

	defer func() {
		if r := recover(); r != nil {
			ev = fail(PhaseParse, fmt.Errorf("parser panic: %v", r))
		}
	}()

	if opts.MapperFilter != "" {
		head, err := readHead(path, HeaderReadSize)
		if err != nil {
			return fail(PhaseParse, err)
		}
		if !osu.ParseHeader(head).Matches(opts.MapperFilter) {
			return event{kind: evSkipped}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(PhaseParse, err)
	}
	return event{kind: evParsed, entry: Entry{
		Path:      path,
		ModTimeMs: mtime,
		File:      osu.Parse(string(data)),
	}}
}

func readHead(path string, n int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, n))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
