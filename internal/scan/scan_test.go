package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMap(t *testing.T, dir, name, creator, version string) string {
	t.Helper()
	src := strings.Join([]string{
		"osu file format v14",
		"",
		"[General]",
		"AudioFilename: audio.mp3",
		"",
		"[Metadata]",
		"Title:Song",
		"Artist:Band",
		"Creator:" + creator,
		"Version:" + version,
		"",
		"[HitObjects]",
		"256,192,1000,1,0",
		"256,192,2000,8,0,3000",
		"",
	}, "\n")
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestScan_ParsesAllMaps(t *testing.T) {
	root := t.TempDir()
	a := writeMap(t, root, "1 Band - Song/Band - Song (alice) [Easy].osu", "alice", "Easy")
	b := writeMap(t, root, "1 Band - Song/Band - Song (bob) [Hard].OSU", "bob", "Hard")
	require.NoError(t, os.WriteFile(filepath.Join(root, "1 Band - Song", "audio.mp3"), []byte("x"), 0o644))

	res, err := Scan(context.Background(), Options{Root: root, Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{a, b}, res.Files)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, a, res.Entries[0].Path)
	assert.Equal(t, b, res.Entries[1].Path)
	assert.False(t, res.Entries[0].Unchanged)
	require.NotNil(t, res.Entries[0].File)
	assert.Equal(t, "alice", res.Entries[0].File.Metadata.Creator)
	assert.Equal(t, []int{1000, 2000}, res.Entries[1].File.HitStarts)
	assert.Equal(t, []int{1000, 3000}, res.Entries[1].File.HitEnds)
	assert.Empty(t, res.Failures)
	assert.Equal(t, Progress{Total: 2, Processed: 2}, res.Progress)
}

func TestScan_UnchangedFilesAreCached(t *testing.T) {
	root := t.TempDir()
	a := writeMap(t, root, "a.osu", "alice", "Easy")
	b := writeMap(t, root, "b.osu", "bob", "Hard")

	info, err := os.Stat(a)
	require.NoError(t, err)
	known := map[string]int64{
		a: info.ModTime().UnixMilli(),
		b: 1,
	}

	res, err := Scan(context.Background(), Options{Root: root, Known: known})
	require.NoError(t, err)

	require.Len(t, res.Entries, 2)
	assert.True(t, res.Entries[0].Unchanged)
	assert.Nil(t, res.Entries[0].File)
	assert.Equal(t, known[a], res.Entries[0].ModTimeMs)
	assert.False(t, res.Entries[1].Unchanged)
	assert.NotNil(t, res.Entries[1].File)
	assert.Equal(t, 1, res.Progress.Cached)
	assert.Equal(t, 1, res.Progress.Processed)

	forced, err := Scan(context.Background(), Options{Root: root, Known: known, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, forced.Progress.Processed)
	assert.Zero(t, forced.Progress.Cached)
}

func TestScan_MapperFilter(t *testing.T) {
	root := t.TempDir()
	writeMap(t, root, "a.osu", "alice", "Easy")
	b := writeMap(t, root, "b.osu", "bob", "Hard")
	c := writeMap(t, root, "c.osu", "carol", "Bob's Insane")

	res, err := Scan(context.Background(), Options{Root: root, MapperFilter: "BOB"})
	require.NoError(t, err)

	require.Len(t, res.Entries, 2)
	assert.Equal(t, b, res.Entries[0].Path)
	assert.Equal(t, c, res.Entries[1].Path)
	assert.Equal(t, 1, res.Progress.Skipped)
	assert.Equal(t, 2, res.Progress.Processed)
	assert.Len(t, res.Files, 3)
}

func TestScan_ProgressCallback(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"a.osu", "b.osu", "c.osu", "d.osu", "e.osu"} {
		writeMap(t, root, n, "alice", "Easy")
	}

	var (
		mu    sync.Mutex
		snaps []Progress
	)
	res, err := Scan(context.Background(), Options{
		Root:    root,
		Workers: 3,
		OnProgress: func(p Progress) {
			mu.Lock()
			snaps = append(snaps, p)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	require.Len(t, snaps, 5)
	for i, p := range snaps {
		assert.Equal(t, i+1, p.Done())
		assert.Equal(t, 5, p.Total)
	}
	assert.Equal(t, snaps[4], res.Progress)
}

func TestScan_EmptyDirectory(t *testing.T) {
	res, err := Scan(context.Background(), Options{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Empty(t, res.Entries)
	assert.Equal(t, Progress{}, res.Progress)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), Options{Root: filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, err)
}

func TestScan_RootIsFile(t *testing.T) {
	path := writeMap(t, t.TempDir(), "a.osu", "alice", "Easy")
	_, err := Scan(context.Background(), Options{Root: path})
	assert.Error(t, err)
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeMap(t, root, "a.osu", "alice", "Easy")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, Options{Root: root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessFile_StatFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.osu")

	ev := processFile(path, Options{})
	require.Equal(t, evFailed, ev.kind)
	assert.Equal(t, PhaseStat, ev.failure.Phase)
	assert.Equal(t, path, ev.failure.Path)
	assert.ErrorIs(t, ev.failure, os.ErrNotExist)
}

func TestProcessFile_ReadFailureIsParsePhase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir.osu")
	require.NoError(t, os.Mkdir(path, 0o755))

	ev := processFile(path, Options{})
	require.Equal(t, evFailed, ev.kind)
	assert.Equal(t, PhaseParse, ev.failure.Phase)
	assert.Contains(t, ev.failure.Error(), "parse "+path)
}

func TestPartition(t *testing.T) {
	files := []string{"a", "b", "c", "d", "e"}

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, partition(files, 3))
	assert.Equal(t, [][]string{{"a", "b", "c", "d", "e"}}, partition(files, 1))
	assert.Len(t, partition(files, 10), 5)
	assert.Nil(t, partition(nil, 4))
}

func TestDefaultWorkers(t *testing.T) {
	n := DefaultWorkers()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, MaxWorkers)
}
