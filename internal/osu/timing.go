package osu

import "math"

// Defaults used before the first timing point: 120 BPM, no SV change.
const (
	DefaultBeatLength     = 500.0
	DefaultSliderVelocity = 1.0
)

// ResolveTiming returns the beat length and slider velocity active at t.
//
// Points are visited in the order given and the scan stops at the first
// point later than t, so an unsorted list is read exactly as the file
// declares it. An uninherited point sets the beat length and resets the
// velocity to 1. An inherited point only changes the velocity when its beat
// length is negative.
func ResolveTiming(points []TimingPoint, t int) (beatLength, sv float64) {
	beatLength, sv = DefaultBeatLength, DefaultSliderVelocity
	for _, p := range points {
		if p.Time > t {
			break
		}
		if p.Uninherited {
			if p.BeatLength > 0 && !math.IsInf(p.BeatLength, 0) {
				beatLength = p.BeatLength
			}
			sv = DefaultSliderVelocity
			continue
		}
		if p.BeatLength < 0 {
			sv = -100 / p.BeatLength
		}
	}
	return beatLength, sv
}
