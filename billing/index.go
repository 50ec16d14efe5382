package billing

import "time"

// Bucket is the (year, month) key payments are grouped under.
type Bucket struct {
	Year  int
	Month time.Month
}

// BucketOf returns the bucket a date falls in.
func BucketOf(d Date) Bucket {
	return Bucket{Year: d.Year(), Month: d.Month()}
}

// Index maps each bucket to its authoritative payment event.
type Index map[Bucket]PaymentEvent

// BuildIndex keeps the first event of every non-empty bucket. Later events
// in the same bucket, and buckets repeated under a duplicate year entry, are
// not indexed. Entries and month keys that failed to decode are skipped.
func BuildIndex(data PaymentData) Index {
	idx := make(Index)
	for _, rec := range data {
		if !rec.Valid() {
			continue
		}
		for month, events := range rec.Months {
			if len(events) == 0 {
				continue
			}
			b := Bucket{Year: rec.Year, Month: month}
			if _, seen := idx[b]; seen {
				continue
			}
			idx[b] = events[0]
		}
	}
	return idx
}

// Lookup returns the event for a bucket.
func (idx Index) Lookup(b Bucket) (PaymentEvent, bool) {
	ev, ok := idx[b]
	return ev, ok
}
