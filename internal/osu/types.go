// Package osu reads .osu beatmap text in a single pass and reduces it to the
// metadata and millisecond intervals needed for progress tracking.
package osu

import "strings"

// Placeholders used when a metadata field is missing from the file.
const (
	UnknownTitle   = "Unknown Title"
	UnknownArtist  = "Unknown Artist"
	UnknownCreator = "Unknown Creator"
	UnknownVersion = "Unknown Version"
)

// BeatmapSetURLPrefix is prepended to numeric beatmap-set ids.
const BeatmapSetURLPrefix = "https://osu.ppy.sh/beatmapsets/"

// Metadata holds the descriptive fields of a beatmap.
type Metadata struct {
	Title         string `json:"title" yaml:"title"`
	TitleUnicode  string `json:"title_unicode" yaml:"title_unicode"`
	Artist        string `json:"artist" yaml:"artist"`
	ArtistUnicode string `json:"artist_unicode" yaml:"artist_unicode"`
	Creator       string `json:"creator" yaml:"creator"`
	Version       string `json:"version" yaml:"version"`
	AudioFile     string `json:"audio_file" yaml:"audio_file"`
	Background    string `json:"background,omitempty" yaml:"background,omitempty"`

	// BeatmapSet is either a canonical web URL (uploaded maps) or the raw
	// value found in the file.
	BeatmapSet string `json:"beatmap_set,omitempty" yaml:"beatmap_set,omitempty"`

	// PreviewTime is in milliseconds, -1 when unset.
	PreviewTime int `json:"preview_time" yaml:"preview_time"`
}

// Uploaded reports whether the beatmap set resolved to a web URL.
func (m Metadata) Uploaded() bool {
	return strings.HasPrefix(m.BeatmapSet, BeatmapSetURLPrefix)
}

// DisplayTitle prefers the native-script title when present.
func (m Metadata) DisplayTitle() string {
	if m.TitleUnicode != "" {
		return m.TitleUnicode
	}
	return m.Title
}

// DisplayArtist prefers the native-script artist when present.
func (m Metadata) DisplayArtist() string {
	if m.ArtistUnicode != "" {
		return m.ArtistUnicode
	}
	return m.Artist
}

// BreakPeriod is a span without active gameplay. End is always > Start.
type BreakPeriod struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// TimingPoint is a tempo or scroll-velocity change.
type TimingPoint struct {
	Time        int
	BeatLength  float64
	Uninherited bool
}

// ParsedFile is the result of a full parse. HitStarts and HitEnds are
// parallel slices describing hit objects in file order.
type ParsedFile struct {
	Metadata  Metadata
	HitStarts []int
	HitEnds   []int
	Breaks    []BreakPeriod
	Bookmarks []int
}

// ObjectCount returns the number of hit objects.
func (p *ParsedFile) ObjectCount() int {
	return len(p.HitStarts)
}

// ContentEnd returns the latest timestamp referenced by any interval, break
// or bookmark. It is 0 for an empty file.
func (p *ParsedFile) ContentEnd() int {
	end := 0
	for _, e := range p.HitEnds {
		end = max(end, e)
	}
	for _, b := range p.Breaks {
		end = max(end, b.End)
	}
	for _, b := range p.Bookmarks {
		end = max(end, b)
	}
	return end
}

// Header is the subset of metadata readable from a partial file.
type Header struct {
	Creator string
	Version string
}

// Matches reports whether filter is a case-insensitive substring of the
// creator or the difficulty name. An empty filter matches everything.
func (h Header) Matches(filter string) bool {
	if filter == "" {
		return true
	}
	f := strings.ToLower(filter)
	return strings.Contains(strings.ToLower(h.Creator), f) ||
		strings.Contains(strings.ToLower(h.Version), f)
}
