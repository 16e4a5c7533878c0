package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	rxCurrency = regexp.MustCompile(`(?i)ars|\$`)
	rxKeepNums = regexp.MustCompile(`[^\d.]`)
	// "1.234", "10.265", "1.234.567": dots as thousands separators
	rxDotThousands = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
)

// ParsePrice parses prices as scraped from AR retailers: "$ 10.265,41",
// "10,265.41", "1.234,5", "ARS 999". When both separators appear the last one
// is the decimal separator; a lone comma is a decimal comma. Dots alone are
// thousands separators when every group after the first has three digits.
func ParsePrice(s string) (float64, bool) {
	s = strings.Join(strings.Fields(s), "")
	s = rxCurrency.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	case rxDotThousands.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	s = rxKeepNums.ReplaceAllString(s, "")
	if s == "" || s == "." {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
