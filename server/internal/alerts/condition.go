package alerts

import (
	"strconv"
	"strings"

	"github.com/processdash/processdash/server/internal/records"
)

// evalCondition evaluates a rule condition against a record.
//
// Supported expressions (column operator value):
//
//	Temperature > 165
//	pH_Value <= 6
//	Pressure >= 6.5
//	status == tripped
//
// Numeric columns are compared with > >= < <= ==. A Text column only
// supports == against the literal right-hand side.
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the column is unknown.
func evalCondition(cond string, rec records.Record) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	v, ok := rec.Get(field)
	if !ok {
		return false, 0
	}

	f, isNum := v.Float()
	if !isNum {
		if op == "==" {
			return v.String() == rhs, 0
		}
		return false, 0
	}

	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(f, op, threshold), f
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
