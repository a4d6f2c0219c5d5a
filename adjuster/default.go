package adjuster

// NameDefault is the registry name of the Default adjuster.
const NameDefault = "default"

// Default buckets frequency into TTLs:
//
//	frequency <= 10    1h, expirable
//	11..50             frequency/10 hours, expirable
//	51..99             10h, expirable
//	>= 100             20h, never expires
type Default struct{}

// Name implements Adjuster.
func (Default) Name() string { return NameDefault }

// Adjust implements Adjuster.
func (Default) Adjust(frequency int) Adjustment {
	switch {
	case frequency <= 10:
		return Adjustment{TTLHours: 1, Expirable: true}
	case frequency <= 50:
		return Adjustment{TTLHours: frequency / 10, Expirable: true}
	case frequency < 100:
		return Adjustment{TTLHours: 10, Expirable: true}
	default:
		return Adjustment{TTLHours: 20, Expirable: false}
	}
}
