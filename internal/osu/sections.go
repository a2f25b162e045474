package osu

import (
	"path"
	"strconv"
	"strings"
)

var backgroundExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

type parser struct {
	out              *ParsedFile
	sliderMultiplier float64
	timing           []TimingPoint
	fields           []string
	prevSlider       bool
}

// handlers maps each section to its per-line parser. sectionNone and
// sectionColours carry nothing we need.
var handlers = [...]func(*parser, string){
	sectionNone:         nil,
	sectionGeneral:      (*parser).general,
	sectionEditor:       (*parser).editor,
	sectionMetadata:     (*parser).metadata,
	sectionDifficulty:   (*parser).difficulty,
	sectionEvents:       (*parser).event,
	sectionTimingPoints: (*parser).timingPoint,
	sectionColours:      nil,
	sectionHitObjects:   (*parser).hitObject,
}

func (p *parser) general(line string) {
	k, v, ok := splitKeyVal(line)
	if !ok {
		return
	}
	switch strings.ToLower(k) {
	case "audiofilename":
		p.out.Metadata.AudioFile = v
	case "previewtime":
		t, ok := atoi(v)
		if !ok {
			t = -1
		}
		p.out.Metadata.PreviewTime = t
	}
}

func (p *parser) editor(line string) {
	k, v, ok := splitKeyVal(line)
	if !ok || !strings.EqualFold(k, "bookmarks") {
		return
	}
	p.out.Bookmarks = p.out.Bookmarks[:0]
	if v == "" {
		return
	}
	p.fields = splitFields(v, p.fields)
	for _, tok := range p.fields {
		if t, ok := atoi(tok); ok {
			p.out.Bookmarks = append(p.out.Bookmarks, t)
		}
	}
}

func (p *parser) metadata(line string) {
	k, v, ok := splitKeyVal(line)
	if !ok {
		return
	}
	m := &p.out.Metadata
	switch strings.ToLower(k) {
	case "title":
		m.Title = v
	case "titleunicode":
		m.TitleUnicode = v
	case "artist":
		m.Artist = v
	case "artistunicode":
		m.ArtistUnicode = v
	case "creator":
		m.Creator = v
	case "version":
		m.Version = v
	case "beatmapsetid":
		m.BeatmapSet = beatmapSetValue(v)
	}
}

func beatmapSetValue(v string) string {
	if id, err := strconv.Atoi(v); err == nil && id > 0 {
		return BeatmapSetURLPrefix + strconv.Itoa(id)
	}
	return v
}

func (p *parser) difficulty(line string) {
	k, v, ok := splitKeyVal(line)
	if !ok || !strings.EqualFold(k, "slidermultiplier") {
		return
	}
	sm, ok := atof(v)
	if !ok || sm <= 0 {
		sm = 1
	}
	p.sliderMultiplier = sm
}

func (p *parser) event(line string) {
	p.fields = splitFields(line, p.fields)
	f := p.fields
	kind := trimSpaceTab(f[0])
	switch {
	case kind == "0":
		if len(f) < 3 || p.out.Metadata.Background != "" {
			return
		}
		name := strings.TrimSpace(strings.Trim(strings.TrimSpace(f[2]), `"`))
		if name != "" && backgroundExts[strings.ToLower(path.Ext(name))] {
			p.out.Metadata.Background = name
		}
	case kind == "2" || strings.EqualFold(kind, "break"):
		if len(f) < 3 {
			return
		}
		start, ok1 := atoi(f[1])
		end, ok2 := atoi(f[2])
		if ok1 && ok2 && end > start {
			p.out.Breaks = append(p.out.Breaks, BreakPeriod{Start: start, End: end})
		}
	}
}

func (p *parser) timingPoint(line string) {
	p.fields = splitFields(line, p.fields)
	f := p.fields
	if len(f) < 2 {
		return
	}
	t, ok := atoi(f[0])
	if !ok {
		return
	}
	bl, ok := atof(f[1])
	if !ok {
		return
	}
	uninherited := true
	if len(f) > 6 {
		uninherited = trimSpaceTab(f[6]) == "1"
	}
	p.timing = append(p.timing, TimingPoint{Time: t, BeatLength: bl, Uninherited: uninherited})
}
