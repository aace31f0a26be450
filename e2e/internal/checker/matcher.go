package checker

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// MatchValue checks a status field against an expected value. Besides plain
// equality it understands ~regex~ and numeric comparisons (>, <, >=, <=).
// Returns (true, "") on match, (false, "reason") on mismatch.
func MatchValue(actual, expected string) (bool, string) {
	if strings.HasPrefix(expected, "~") && strings.HasSuffix(expected, "~") && len(expected) > 1 {
		return matchRegex(actual, strings.Trim(expected, "~"))
	}

	if strings.HasPrefix(expected, ">") || strings.HasPrefix(expected, "<") {
		return matchComparison(actual, expected)
	}

	if actual == expected {
		return true, ""
	}

	// Numbers compare by value so "30" matches "30.0"
	a, errA := strconv.ParseFloat(actual, 64)
	e, errE := strconv.ParseFloat(expected, 64)
	if errA == nil && errE == nil && a == e {
		return true, ""
	}

	return false, fmt.Sprintf("expected %q, got %q", expected, actual)
}

// MatchFields checks every expected field against the actual hash
func MatchFields(actual, expected map[string]string) (bool, string) {
	// Sorted for stable failure messages
	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, ok := actual[name]
		if !ok {
			return false, fmt.Sprintf("missing field %q", name)
		}
		if matches, reason := MatchValue(value, expected[name]); !matches {
			return false, fmt.Sprintf("field %q: %s", name, reason)
		}
	}
	return true, ""
}

// matchRegex checks if actual matches a regex pattern
func matchRegex(actual, pattern string) (bool, string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid regex pattern %q: %v", pattern, err)
	}

	if re.MatchString(actual) {
		return true, ""
	}

	return false, fmt.Sprintf("value %q does not match pattern ~%s~", actual, pattern)
}

// matchComparison checks if actual satisfies a comparison (>, <, >=, <=)
func matchComparison(actual, comparison string) (bool, string) {
	actualFloat, err := strconv.ParseFloat(actual, 64)
	if err != nil {
		return false, fmt.Sprintf("cannot compare non-numeric value: %q", actual)
	}

	var op string
	for _, candidate := range []string{">=", "<=", ">", "<"} {
		if strings.HasPrefix(comparison, candidate) {
			op = candidate
			break
		}
	}
	valueStr := strings.TrimSpace(strings.TrimPrefix(comparison, op))

	expectedFloat, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return false, fmt.Sprintf("invalid comparison value: %s", valueStr)
	}

	var result bool
	switch op {
	case ">":
		result = actualFloat > expectedFloat
	case "<":
		result = actualFloat < expectedFloat
	case ">=":
		result = actualFloat >= expectedFloat
	case "<=":
		result = actualFloat <= expectedFloat
	}

	if result {
		return true, ""
	}

	return false, fmt.Sprintf("expected value %s %v, but got %v", op, expectedFloat, actualFloat)
}
