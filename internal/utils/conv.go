package utils

import (
	"strconv"
)

// StringToInt converts s to int, returning 0 on error.
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// PageParam parses a 1-based page number, defaulting to 1.
func PageParam(s string) int {
	if p := StringToInt(s); p > 0 {
		return p
	}
	return 1
}
