package highlight

import "math"

// minProgressSpan keeps the ignore-start denominator away from zero.
const minProgressSpan = 0.001

// Progress reduces ranges to a completion fraction in [0, 1].
//
// By default it is the total object coverage. With ignoreStartAndBreaks set,
// break time also counts as covered and the lead-in before the first object
// is removed from the denominator.
func Progress(ranges Ranges, ignoreStartAndBreaks bool) float64 {
	if len(ranges) == 0 {
		return 0
	}

	populated, breaks := 0.0, 0.0
	first := math.Inf(1)
	for _, r := range ranges {
		switch {
		case r.IsObject():
			populated += r.Len()
			first = math.Min(first, r.Start)
		case r.Kind == KindBreak:
			breaks += r.Len()
		}
	}

	if !ignoreStartAndBreaks {
		return math.Min(1, populated)
	}

	if math.IsInf(first, 1) {
		first = 0
	}
	total := math.Max(minProgressSpan, 1-first)
	return math.Min(1, (populated+breaks)/total)
}
