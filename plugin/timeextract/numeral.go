package timeextract

import (
	"strconv"
	"time"
)

var cnDigits = map[rune]int{
	'零': 0, '〇': 0, '一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
	'0': 0, '1': 1, '2': 2, '3': 3, '4': 4, '5': 5, '6': 6, '7': 7, '8': 8, '9': 9,
}

var cnUnits = map[rune]int{'十': 10, '百': 100, '千': 1000, '万': 10000}

// leadingDigits returns the ASCII digit prefix of s.
func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

// ChineseToInt converts a number written in digits or Chinese numerals.
// A leading run of ASCII digits wins; otherwise the numerals are read right to
// left so that "十五" is 15 and "三十" is 30.
func ChineseToInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if d := leadingDigits(s); d != "" {
		n, err := strconv.Atoi(d)
		return n, err == nil
	}

	runes := []rune(s)
	result, unit := 0, 1
	sawUnit := false
	for i := len(runes) - 1; i >= 0; i-- {
		r := runes[i]
		if u, ok := cnUnits[r]; ok {
			unit, sawUnit = u, true
			continue
		}
		n, ok := cnDigits[r]
		if !ok {
			return 0, false
		}
		result += n * unit
	}
	// A leading unit has an implied one: 十五 is 15.
	if sawUnit && result < unit {
		result += unit
	}
	return result, true
}

// YearToInt converts a year written digit by digit ("二〇二六", "2026", "26").
// Two-digit years fall in the century of now.
func YearToInt(s string, now time.Time) (int, bool) {
	var digits []byte
	for _, r := range s {
		n, ok := cnDigits[r]
		if !ok {
			break
		}
		digits = append(digits, byte('0'+n))
	}
	if len(digits) == 0 {
		return 0, false
	}
	year, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0, false
	}
	if len(digits) == 2 {
		year += now.Year() / 100 * 100
	}
	return year, true
}
