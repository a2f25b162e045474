package osu

import "strings"

type section int

const (
	sectionNone section = iota
	sectionGeneral
	sectionEditor
	sectionMetadata
	sectionDifficulty
	sectionEvents
	sectionTimingPoints
	sectionColours
	sectionHitObjects
)

var sectionNames = [...]struct {
	name string
	sec  section
}{
	{"General", sectionGeneral},
	{"Editor", sectionEditor},
	{"Metadata", sectionMetadata},
	{"Difficulty", sectionDifficulty},
	{"Events", sectionEvents},
	{"TimingPoints", sectionTimingPoints},
	{"Colours", sectionColours},
	{"HitObjects", sectionHitObjects},
}

func sectionByName(name string) section {
	for _, s := range sectionNames {
		if strings.EqualFold(name, s.name) {
			return s.sec
		}
	}
	return sectionNone
}

const utf8BOM = "\xef\xbb\xbf"

// lineScanner walks the file once. Header lines update sec and are consumed;
// next only yields content lines, already trimmed.
type lineScanner struct {
	src     string
	pos     int
	sec     section
	headers int
}

func newLineScanner(content string) *lineScanner {
	return &lineScanner{src: strings.TrimPrefix(content, utf8BOM)}
}

func (s *lineScanner) next() (string, bool) {
	for s.pos < len(s.src) {
		start := s.pos
		end := strings.IndexAny(s.src[start:], "\r\n")
		if end < 0 {
			end = len(s.src)
			s.pos = end
		} else {
			end += start
			s.pos = end + 1
			if s.src[end] == '\r' && s.pos < len(s.src) && s.src[s.pos] == '\n' {
				s.pos++
			}
		}

		line := trimSpaceTab(s.src[start:end])
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if len(line) >= 2 && line[0] == '[' && line[len(line)-1] == ']' {
			s.sec = sectionByName(line[1 : len(line)-1])
			s.headers++
			continue
		}
		return line, true
	}
	return "", false
}

func trimSpaceTab(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}
