package state

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/mapdone/internal/highlight"
	"github.com/platinummonkey/mapdone/internal/osu"
)

// Library is the tracked set of map items
type Library struct {
	// Version is the state file format version
	Version int `json:"version"`

	// LastScan is the timestamp of the last completed scan
	LastScan time.Time `json:"last_scan"`

	// Items is a map of item ID to item
	Items map[string]*Item `json:"items"`

	// byPath indexes item IDs by file path; rebuilt on load
	byPath map[string]string
}

// Item is one map file on the todo list
type Item struct {
	// ID is a random identifier assigned when the file is first seen
	ID string `json:"id"`

	// FilePath is the absolute path of the map file
	FilePath string `json:"file_path"`

	Metadata osu.Metadata `json:"metadata"`

	// Highlights are the normalized timeline ranges for the map
	Highlights highlight.Ranges `json:"highlights"`

	// Progress is the completion fraction derived from Highlights
	Progress float64 `json:"progress"`

	// DurationMs is the track length used to lay out Highlights
	DurationMs int `json:"duration_ms"`

	// DurationSource records where DurationMs came from
	DurationSource DurationSource `json:"duration_source"`

	// ModTime is the map file mtime in milliseconds at the last parse
	ModTime int64 `json:"mod_time_ms"`

	// AudioPath and AudioModTime identify the probed audio file
	AudioPath    string `json:"audio_path,omitempty"`
	AudioModTime int64  `json:"audio_mod_time_ms,omitempty"`

	// ObjectCount is the number of hit objects in the map
	ObjectCount int `json:"object_count"`

	Status Status `json:"status"`

	// DueDate is an optional target day; zero when unset
	DueDate time.Time `json:"due_date,omitempty"`

	AddedAt     time.Time `json:"added_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Status is the todo state of an item
type Status string

const (
	// StatusTodo marks an item still being worked on
	StatusTodo Status = "todo"

	// StatusCompleted marks a finished item
	StatusCompleted Status = "completed"
)

// ParseStatus accepts the status names used on the command line.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo":
		return StatusTodo, true
	case "completed", "done":
		return StatusCompleted, true
	}
	return "", false
}

// DurationSource tells where an item's duration came from
type DurationSource string

const (
	// DurationAudio is a duration measured from the audio file
	DurationAudio DurationSource = "audio"

	// DurationContent is the last timestamp found in the map itself
	DurationContent DurationSource = "content"

	// DurationNone means no duration is known yet and Highlights is empty
	DurationNone DurationSource = "none"
)

// LibraryFileVersion is the current version of the state file format
const LibraryFileVersion = 1

// NewLibrary creates a new empty Library
func NewLibrary() *Library {
	return &Library{
		Version: LibraryFileVersion,
		Items:   make(map[string]*Item),
		byPath:  make(map[string]string),
	}
}

// NewItem creates a todo item for a newly discovered map file
func NewItem(path string) *Item {
	return &Item{
		ID:             uuid.NewString(),
		FilePath:       path,
		Status:         StatusTodo,
		DurationSource: DurationNone,
		AddedAt:        time.Now(),
	}
}

// MarkCompleted moves the item to the completed list
func (it *Item) MarkCompleted() {
	if it.Status == StatusCompleted {
		return
	}
	it.Status = StatusCompleted
	it.CompletedAt = time.Now()
}

// MarkTodo moves the item back to the todo list
func (it *Item) MarkTodo() {
	it.Status = StatusTodo
	it.CompletedAt = time.Time{}
}

// SetDue sets the due day, or clears it when due is zero
func (it *Item) SetDue(due time.Time) {
	if due.IsZero() {
		it.DueDate = time.Time{}
		return
	}
	y, m, d := due.Date()
	it.DueDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HasDue reports whether a due day is set
func (it *Item) HasDue() bool {
	return !it.DueDate.IsZero()
}

// Clone returns a deep copy safe to hand out of the store
func (it *Item) Clone() *Item {
	c := *it
	c.Highlights = append(highlight.Ranges(nil), it.Highlights...)
	return &c
}

// reindex rebuilds the path index after a load
func (l *Library) reindex() {
	l.byPath = make(map[string]string, len(l.Items))
	for id, it := range l.Items {
		if it.ID == "" {
			it.ID = id
		}
		l.byPath[it.FilePath] = it.ID
	}
}

// Get returns the item for an ID, or nil if not found
func (l *Library) Get(id string) *Item {
	return l.Items[id]
}

// GetByPath returns the item tracking a file path, or nil if not found
func (l *Library) GetByPath(path string) *Item {
	id, ok := l.byPath[path]
	if !ok {
		return nil
	}
	return l.Items[id]
}

// Put adds or replaces an item. An older item for the same path is dropped.
func (l *Library) Put(it *Item) {
	if prev := l.Items[it.ID]; prev != nil && prev.FilePath != it.FilePath {
		delete(l.byPath, prev.FilePath)
	}
	if other, ok := l.byPath[it.FilePath]; ok && other != it.ID {
		delete(l.Items, other)
	}
	l.Items[it.ID] = it
	l.byPath[it.FilePath] = it.ID
}

// Remove deletes an item, reporting whether it existed
func (l *Library) Remove(id string) bool {
	it, ok := l.Items[id]
	if !ok {
		return false
	}
	delete(l.byPath, it.FilePath)
	delete(l.Items, id)
	return true
}

// UpdateLastScan updates the last scan timestamp
func (l *Library) UpdateLastScan() {
	l.LastScan = time.Now()
}

// Sorted returns the items ordered by AddedAt, then path
func (l *Library) Sorted() []*Item {
	items := make([]*Item, 0, len(l.Items))
	for _, it := range l.Items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.Before(items[j].AddedAt)
		}
		return items[i].FilePath < items[j].FilePath
	})
	return items
}
