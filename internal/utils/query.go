package utils

import (
	"math"
	"strconv"
	"strings"
)

// Atoi parses s, returning def when s is empty or malformed.
func Atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func ToBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on", "si", "sí":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// ToFloat parses s as a plain float, rejecting NaN and infinities.
func ToFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}
