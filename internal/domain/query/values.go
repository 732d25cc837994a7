package query

import (
	"time"
)

// equalValues compares two values for equality, coercing JSON numbers and
// RFC3339 timestamp strings as needed. The second return is false when the
// two values have no common comparable type.
func equalValues(a interface{}, b interface{}) (bool, bool) {
	if a == nil || b == nil {
		return a == nil && b == nil, true
	}
	if aNum, aOk := asNumber(a); aOk {
		if bNum, bOk := asNumber(b); bOk {
			return aNum == bNum, true
		}
		return false, false
	}
	if aBool, aOk := a.(bool); aOk {
		bBool, bOk := b.(bool)
		if !bOk {
			return false, false
		}
		return aBool == bBool, true
	}
	if aTime, aOk := asTime(a); aOk {
		if bTime, bOk := asTime(b); bOk {
			return aTime.Equal(bTime), true
		}
	}
	if aStr, aOk := a.(string); aOk {
		if bStr, bOk := b.(string); bOk {
			return aStr == bStr, true
		}
		return false, false
	}
	return false, false
}

// compareValues orders two values, returning <0, 0 or >0 like strings.Compare.
// The second return is false when the values cannot be ordered.
func compareValues(a interface{}, b interface{}) (int, bool) {
	if aNum, aOk := asNumber(a); aOk {
		if bNum, bOk := asNumber(b); bOk {
			switch {
			case aNum < bNum:
				return -1, true
			case aNum > bNum:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if aTime, aOk := asTime(a); aOk {
		if bTime, bOk := asTime(b); bOk {
			switch {
			case aTime.Before(bTime):
				return -1, true
			case aTime.After(bTime):
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if aStr, aOk := a.(string); aOk {
		if bStr, bOk := b.(string); bOk {
			switch {
			case aStr < bStr:
				return -1, true
			case aStr > bStr:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	return 0, false
}

func asNumber(v interface{}) (float64, bool) {
	switch typed := v.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	default:
		return 0, false
	}
}

func asTime(v interface{}) (time.Time, bool) {
	switch typed := v.(type) {
	case time.Time:
		return typed, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, typed); err == nil {
			return parsed, true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
