package tagvalue

import "time"

const (
	timestampLayout = "20060102-15:04:05.000"
	microLayout     = "20060102-15:04:05.000000"
	orderIDLayout   = "150405.000000"
)

// Timestamp renders t as a UTCTimestamp value with millisecond precision.
func Timestamp(t time.Time) []byte {
	return []byte(t.Format(timestampLayout))
}

// OrderIDTime renders the time-of-day suffix used in generated ClOrdIDs.
func OrderIDTime(t time.Time) []byte {
	return []byte(t.Format(orderIDLayout))
}

// ParseTimestamp accepts both millisecond and microsecond timestamps.
func ParseTimestamp(b []byte) (time.Time, error) {
	layout := timestampLayout
	if len(b) == len(microLayout) {
		layout = microLayout
	}
	return time.Parse(layout, string(b))
}
