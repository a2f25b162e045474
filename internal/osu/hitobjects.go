package osu

import (
	"math"
	"strings"
)

// Hit-object type bits.
const (
	TypeCircle  = 1 << 0
	TypeSlider  = 1 << 1
	TypeSpinner = 1 << 3
	TypeHold    = 1 << 7
)

// maxObjectLength caps slider durations computed from extreme inputs.
const maxObjectLength = math.MaxInt32

// hitObject parses "x,y,time,type,hitSound,..." and appends its interval.
func (p *parser) hitObject(line string) {
	p.fields = splitFields(line, p.fields)
	f := p.fields
	if len(f) < 4 {
		return
	}
	start, ok := atoi(f[2])
	if !ok {
		return
	}
	typ, _ := atoi(f[3])

	end := start
	switch {
	case typ&TypeSlider != 0:
		if len(f) >= 8 {
			end = start + p.sliderLength(start, f[6], f[7])
		}
	case typ&TypeSpinner != 0:
		if len(f) >= 6 {
			if v, ok := atoi(f[5]); ok {
				end = v
			}
		}
	case typ&TypeHold != 0:
		if len(f) >= 6 {
			tok := f[5]
			if i := strings.IndexByte(tok, ':'); i >= 0 {
				tok = tok[:i]
			}
			if v, ok := atoi(tok); ok {
				end = v
			}
		}
	}
	end = max(end, start)

	out := p.out
	if p.prevSlider {
		last := len(out.HitEnds) - 1
		out.HitEnds[last] = max(out.HitEnds[last], start)
	}
	out.HitStarts = append(out.HitStarts, start)
	out.HitEnds = append(out.HitEnds, end)
	p.prevSlider = typ&TypeSlider != 0
}

// sliderLength returns the slider body duration in whole milliseconds.
func (p *parser) sliderLength(start int, slidesField, lengthField string) int {
	slides, ok := atoi(slidesField)
	if !ok {
		slides = 1
	}
	length, ok := atof(lengthField)
	if !ok {
		length = 0
	}
	beatLength, sv := ResolveTiming(p.timing, start)
	d := length / (p.sliderMultiplier * 100 * sv) * beatLength * float64(slides)
	return clampDuration(d)
}

func clampDuration(d float64) int {
	if math.IsNaN(d) || d <= 0 {
		return 0
	}
	d = math.Floor(d)
	if d > maxObjectLength {
		return maxObjectLength
	}
	return int(d)
}
