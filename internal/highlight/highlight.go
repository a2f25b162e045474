// Package highlight turns raw map intervals into normalized timeline ranges
// and reduces those ranges to a completion fraction.
package highlight

import (
	"math"
	"sort"

	"github.com/platinummonkey/mapdone/internal/osu"
)

// Kind tags the origin of a range.
type Kind string

const (
	KindObject   Kind = "object"
	KindBreak    Kind = "break"
	KindBookmark Kind = "bookmark"
)

// Bin counts for the two binned builders. Bookmark ranges are widened to
// bookmarkWidth bins so a single bookmark stays visible.
const (
	ObjectBins    = 120
	BookmarkBins  = 200
	bookmarkWidth = 1.2
)

// Range is a [Start, End) slice of the track as fractions of its duration.
type Range struct {
	Start float64
	End   float64
	Kind  Kind
}

// Len returns End - Start.
func (r Range) Len() float64 {
	return r.End - r.Start
}

// IsObject reports whether the range counts as object coverage. Untagged
// ranges are treated as objects.
func (r Range) IsObject() bool {
	return r.Kind == KindObject || r.Kind == ""
}

// Ranges is a list of highlight ranges in storage order.
type Ranges []Range

// Input carries the raw intervals of one map.
type Input struct {
	Starts    []int
	Ends      []int
	Breaks    []osu.BreakPeriod
	Bookmarks []int
}

// InputFrom collects the intervals of a parsed file.
func InputFrom(p *osu.ParsedFile) Input {
	return Input{
		Starts:    p.HitStarts,
		Ends:      p.HitEnds,
		Breaks:    p.Breaks,
		Bookmarks: p.Bookmarks,
	}
}

// Build runs all three builders and concatenates their output as breaks,
// objects, bookmarks. It returns nil while the duration is unknown.
func Build(in Input, durationMs int) Ranges {
	if durationMs <= 0 {
		return nil
	}
	out := make(Ranges, 0, len(in.Breaks)+8)
	out = append(out, BreakRanges(in.Breaks, durationMs)...)
	out = append(out, ObjectRanges(in.Starts, in.Ends, durationMs)...)
	out = append(out, BookmarkRanges(in.Bookmarks, durationMs)...)
	return out
}

// ObjectRanges marks every bin touched by an object and run-length encodes
// the filled bins. Objects starting outside [0, duration] are ignored.
func ObjectRanges(starts, ends []int, durationMs int) Ranges {
	if durationMs <= 0 {
		return nil
	}
	d := float64(durationMs)
	var filled [ObjectBins]bool
	for i, s := range starts {
		if s < 0 || s > durationMs {
			continue
		}
		e := s
		if i < len(ends) {
			e = max(s, ends[i])
		}
		for b := binOf(s, d, ObjectBins); b <= binOf(e, d, ObjectBins); b++ {
			filled[b] = true
		}
	}

	var out Ranges
	run := -1
	for b, f := range filled {
		switch {
		case f && run < 0:
			run = b
		case !f && run >= 0:
			out = append(out, Range{
				Start: float64(run) / ObjectBins,
				End:   float64(b) / ObjectBins,
				Kind:  KindObject,
			})
			run = -1
		}
	}
	if run >= 0 {
		out = append(out, Range{Start: float64(run) / ObjectBins, End: 1, Kind: KindObject})
	}
	return out
}

// BreakRanges maps each break directly onto the track.
func BreakRanges(breaks []osu.BreakPeriod, durationMs int) Ranges {
	if durationMs <= 0 {
		return nil
	}
	d := float64(durationMs)
	var out Ranges
	for _, b := range breaks {
		r := Range{
			Start: clamp01(float64(b.Start) / d),
			End:   clamp01(float64(b.End) / d),
			Kind:  KindBreak,
		}
		if r.End > r.Start {
			out = append(out, r)
		}
	}
	return out
}

// BookmarkRanges emits one widened range per occupied bookmark bin. Adjacent
// bins are not merged. A bookmark must fall in [0, duration); one placed
// exactly at the end has no bin and is dropped.
func BookmarkRanges(bookmarks []int, durationMs int) Ranges {
	if durationMs <= 0 {
		return nil
	}
	d := float64(durationMs)
	var marked [BookmarkBins]bool
	for _, t := range bookmarks {
		if t < 0 || t >= durationMs {
			continue
		}
		marked[binOf(t, d, BookmarkBins)] = true
	}

	var out Ranges
	for b, m := range marked {
		if !m {
			continue
		}
		out = append(out, Range{
			Start: float64(b) / BookmarkBins,
			End:   math.Min(1, (float64(b)+bookmarkWidth)/BookmarkBins),
			Kind:  KindBookmark,
		})
	}
	return out
}

// ForRender returns a copy ordered breaks, objects, bookmarks so that
// bookmarks are drawn last.
func ForRender(r Ranges) Ranges {
	out := append(Ranges(nil), r...)
	sort.SliceStable(out, func(i, j int) bool {
		return drawOrder(out[i].Kind) < drawOrder(out[j].Kind)
	})
	return out
}

func drawOrder(k Kind) int {
	switch k {
	case KindBreak:
		return 0
	case KindBookmark:
		return 2
	default:
		return 1
	}
}

func binOf(t int, d float64, bins int) int {
	b := int(math.Floor(float64(t) / d * float64(bins)))
	if b < 0 {
		return 0
	}
	if b >= bins {
		return bins - 1
	}
	return b
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
