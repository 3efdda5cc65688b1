package entity

import (
	"fmt"
	"time"
)

// BackfillStartYear is the first year requested when backfilling a symbol.
const BackfillStartYear = 2000

// MonthBucket identifies one calendar month, the unit the provider is queried by.
type MonthBucket struct {
	Year  int
	Month time.Month
}

// BucketOf returns the month bucket containing t (in exchange-local time).
func BucketOf(t time.Time) MonthBucket {
	t = t.In(Exchange)
	return MonthBucket{Year: t.Year(), Month: t.Month()}
}

// String formats the bucket as YYYY-MM, the provider's month parameter.
func (b MonthBucket) String() string {
	return fmt.Sprintf("%04d-%02d", b.Year, int(b.Month))
}

// Next returns the bucket following b.
func (b MonthBucket) Next() MonthBucket {
	if b.Month == time.December {
		return MonthBucket{Year: b.Year + 1, Month: time.January}
	}
	return MonthBucket{Year: b.Year, Month: b.Month + 1}
}

// Before reports whether b is strictly earlier than o.
func (b MonthBucket) Before(o MonthBucket) bool {
	if b.Year != o.Year {
		return b.Year < o.Year
	}
	return b.Month < o.Month
}

// BackfillBuckets returns every month from January of BackfillStartYear
// through the month containing now, in chronological order.
func BackfillBuckets(now time.Time) []MonthBucket {
	last := BucketOf(now)
	out := make([]MonthBucket, 0, (last.Year-BackfillStartYear+1)*12)
	for b := (MonthBucket{Year: BackfillStartYear, Month: time.January}); !last.Before(b); b = b.Next() {
		out = append(out, b)
	}
	return out
}
