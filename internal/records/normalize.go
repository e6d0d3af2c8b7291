package records

import (
	"fmt"
	"strconv"
)

// NormalizePerson converts a raw OCR mapping into a PersonRecord. Every declared
// field is filled; anything missing, null or of an unusable type becomes "".
func NormalizePerson(raw map[string]any) PersonRecord {
	var p PersonRecord
	fields := p.fields()
	for _, key := range PersonKeys {
		*fields[key] = coerce(raw[key])
	}
	return p
}

// NormalizeVehicle converts a raw OCR mapping into a VehicleRecord, filling the
// legacy aliases from their specific counterparts when absent.
func NormalizeVehicle(raw map[string]any) VehicleRecord {
	var v VehicleRecord
	fields := v.fields()
	for _, key := range VehicleKeys {
		*fields[key] = coerce(raw[key])
	}

	if v.VehicleType == "" {
		v.VehicleType = v.Category
	}
	if v.Places == "" {
		v.Places = v.Seats
	}
	if v.Tyres == "" {
		v.Tyres = v.TyreSize
	}
	return v
}

// coerce follows truthiness: nil, "", false and numeric zero all yield ""
func coerce(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return ""
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		if v == 0 {
			return ""
		}
		return strconv.Itoa(v)
	case int64:
		if v == 0 {
			return ""
		}
		return strconv.FormatInt(v, 10)
	case map[string]any, []any:
		// nested structures are not a field value
		return ""
	default:
		return fmt.Sprint(v)
	}
}
