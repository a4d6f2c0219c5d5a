package table

// Size estimation constants, in bytes.
const (
	// CharWidth is the estimated width of a single character in a field name or string value.
	CharWidth = 2
	// NumericSize is the estimated size of any numeric scalar.
	NumericSize = 8
	// FallbackSize is the estimated size of any value that is neither a string nor a number.
	FallbackSize = 16
)

// EstimateRecordSize returns the estimated byte size of a single record:
// the field names weighted by CharWidth plus the estimate of every value.
func EstimateRecordSize(r Record) int64 {
	var size int64
	for field, value := range r {
		size += textSize(field)
		size += EstimateValueSize(value)
	}
	return size
}

// EstimateValueSize returns the estimated byte size of a single record value.
func EstimateValueSize(v any) int64 {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return textSize(x)
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return NumericSize
	default:
		return FallbackSize
	}
}

// textSize counts UTF-16 code units so that characters outside the basic
// multilingual plane weigh twice as much as the rest.
func textSize(s string) int64 {
	var units int64
	for _, r := range s {
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return units * CharWidth
}
