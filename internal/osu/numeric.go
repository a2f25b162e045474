package osu

import (
	"math"
	"strconv"
	"strings"
)

// maxIntDigits keeps atoi inside int64 range.
const maxIntDigits = 18

// atoi reads the leading integer of s: optional sign, then digits. Anything
// after the digits is ignored, so "1234.5" reads as 1234. ok is false when s
// holds no leading digit.
func atoi(s string) (int, bool) {
	s = trimSpaceTab(s)
	i, neg := 0, false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	start := i
	n := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		if i-start < maxIntDigits {
			n = n*10 + int(s[i]-'0')
		}
		i++
	}
	if i == start {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

// atof reads the longest leading decimal number of s. Non-finite results are
// rejected.
func atof(s string) (float64, bool) {
	s = trimSpaceTab(s)
	n := floatPrefix(s)
	if n == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:n], 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func floatPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '-' || s[j] == '+') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}

// splitFields cuts line on commas into buf, reusing its backing array. The
// returned substrings share memory with line.
func splitFields(line string, buf []string) []string {
	buf = buf[:0]
	for {
		i := strings.IndexByte(line, ',')
		if i < 0 {
			return append(buf, line)
		}
		buf = append(buf, line[:i])
		line = line[i+1:]
	}
}

func splitKeyVal(line string) (key, val string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}
