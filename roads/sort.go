package roads

import (
	"strconv"
	"unicode"
)

// sortableValue is a tag value together with its leading number (e.g. 25 in "25 mph"), if there is one.
type sortableValue struct {
	value           string
	hasNumberPrefix bool
	isNumber        bool // True when the whole value is a number
	number          float64
}

func toSortableValue(s string) sortableValue {
	v := sortableValue{value: s}

	prefix := numberPrefix(s)
	if prefix == "" {
		return v
	}

	number, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return v
	}

	v.hasNumberPrefix = true
	v.isNumber = len(prefix) == len(s)
	v.number = number
	return v
}

func (v sortableValue) isLessThan(other sortableValue) bool {
	if v.hasNumberPrefix && other.hasNumberPrefix {
		if v.number == other.number {
			if v.isNumber != other.isNumber {
				// Plain numbers come before numbers with unit, so "2" < "2 m".
				return v.isNumber
			}
			return v.value < other.value
		}
		return v.number < other.number
	}
	if v.hasNumberPrefix != other.hasNumberPrefix {
		return v.hasNumberPrefix
	}
	return v.value < other.value
}

// numberPrefix returns the leading decimal number of s, like "-1.5" for "-1.5 m", or "" if s doesn't start with one.
func numberPrefix(s string) string {
	end := 0
	seenDigit := false
	seenDecimalPoint := false

	for i, r := range s {
		switch {
		case r == '-' && i == 0:
		case r == '.' && !seenDecimalPoint:
			seenDecimalPoint = true
		case unicode.IsDigit(r):
			seenDigit = true
		default:
			if seenDigit {
				return s[:end]
			}
			return ""
		}
		end = i + 1
	}

	if !seenDigit {
		return ""
	}
	return s[:end]
}

// valueIsLessThan orders tag values number-aware, e.g. "5 mph" comes before "25 mph".
func valueIsLessThan(a string, b string) bool {
	return toSortableValue(a).isLessThan(toSortableValue(b))
}
