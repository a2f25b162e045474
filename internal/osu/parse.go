package osu

import "strings"

// Parse reads a complete .osu file. It never fails: malformed lines are
// skipped and unparseable numbers fall back to their documented defaults.
// Parse keeps no shared state and is safe to call from many goroutines.
func Parse(content string) *ParsedFile {
	n := estimateObjects(len(content))
	p := &parser{
		out: &ParsedFile{
			Metadata:  Metadata{PreviewTime: -1},
			HitStarts: make([]int, 0, n),
			HitEnds:   make([]int, 0, n),
			Breaks:    []BreakPeriod{},
			Bookmarks: []int{},
		},
		sliderMultiplier: 1,
		fields:           make([]string, 0, 16),
	}

	sc := newLineScanner(content)
	for {
		line, ok := sc.next()
		if !ok {
			break
		}
		if h := handlers[sc.sec]; h != nil {
			h(p, line)
		}
	}

	applyMetadataDefaults(&p.out.Metadata)
	p.out.HitStarts = trim(p.out.HitStarts)
	p.out.HitEnds = trim(p.out.HitEnds)
	return p.out
}

// ParseHeader reads only creator and version. It is meant for a partial read
// of the start of a file and stops once both are known or the [Metadata]
// section has ended. Missing values are left empty.
func ParseHeader(content string) Header {
	var h Header
	var haveCreator, haveVersion bool
	metadataHeader := -1

	sc := newLineScanner(content)
	for {
		line, ok := sc.next()
		if !ok {
			break
		}
		if metadataHeader >= 0 && sc.headers != metadataHeader {
			break
		}
		if sc.sec != sectionMetadata {
			continue
		}
		metadataHeader = sc.headers
		k, v, ok := splitKeyVal(line)
		if !ok {
			continue
		}
		switch {
		case strings.EqualFold(k, "creator"):
			h.Creator, haveCreator = v, true
		case strings.EqualFold(k, "version"):
			h.Version, haveVersion = v, true
		}
		if haveCreator && haveVersion {
			break
		}
	}
	return h
}

func applyMetadataDefaults(m *Metadata) {
	if m.Title == "" {
		m.Title = UnknownTitle
	}
	if m.TitleUnicode == "" {
		m.TitleUnicode = m.Title
	}
	if m.Artist == "" {
		m.Artist = UnknownArtist
	}
	if m.ArtistUnicode == "" {
		m.ArtistUnicode = m.Artist
	}
	if m.Creator == "" {
		m.Creator = UnknownCreator
	}
	if m.Version == "" {
		m.Version = UnknownVersion
	}
}

// estimateObjects guesses the hit-object count from the file size; a typical
// hit-object line is around 30 bytes and they make up most of a map.
func estimateObjects(size int) int {
	return min(size/48, 1<<16)
}

// trim drops excess capacity when the estimate overshot by a wide margin.
func trim(s []int) []int {
	if cap(s) > 2*len(s)+64 {
		return append(make([]int, 0, len(s)), s...)
	}
	return s
}
