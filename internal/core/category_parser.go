package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseCategoryResponse reads the "categoria: <X> | confianca: <Y>" grammar,
// case-insensitively. Without a pipe the whole answer becomes the category
// with confidence 0. Missing fields fall back to UNKNOWN and 0, and so does a
// confidence that is not a finite number. Segments after the second pipe are
// ignored.
func ParseCategoryResponse(raw string) CategoryResult {
	content := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "\n", " ")

	if !strings.Contains(content, "|") {
		if content == "" {
			return CategoryResult{Category: CategoryUnknown}
		}
		return CategoryResult{Category: strings.ToUpper(content)}
	}

	parts := strings.Split(content, "|")
	result := CategoryResult{Category: CategoryUnknown}

	if strings.Contains(parts[0], "categoria") {
		if v, ok := fieldValue(parts[0]); ok && v != "" {
			result.Category = strings.ToUpper(v)
		}
	}

	if strings.Contains(parts[1], "confianca") || strings.Contains(parts[1], "confiança") {
		if v, ok := fieldValue(parts[1]); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				result.Confidence = f
			}
		}
	}
	return result
}

// fieldValue returns the trimmed text between the first and second colon.
func fieldValue(segment string) (string, bool) {
	fields := strings.Split(segment, ":")
	if len(fields) < 2 {
		return "", false
	}
	return strings.TrimSpace(fields[1]), true
}
