/*
payments.go - Persisted payment record structure for a booking

PURPOSE:
  A booking carries every payment ever recorded against it as a nested
  JSON document, grouped by calendar year and month:

    [
      {"year": 2025, "months": {
          "January":  [{"payment_date": "2025-01-16", "payment_time": "10:00:00", "payment_amount": 1000}],
          "February": [...]
      }}
    ]

  In memory the document is a list of YearRecord values keyed by
  time.Month. The JSON shape above is kept for existing rows.

TOLERANCE:
  Stored documents may contain data this package does not understand
  (misspelled month keys, non-list month values, entries without a year).
  Decoding never fails on such parts: they are carried along untouched and
  written back on encode, and the index simply does not see them.

APPEND-ONLY:
  Record() is the only mutation. Events are never edited or removed.

SEE ALSO:
  - index.go: (year, month) lookup over PaymentData
  - schedule.go: Reconciliation of periods against the index
*/
package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the format of PaymentEvent.Time.
const TimeLayout = "15:04:05"

// =============================================================================
// PAYMENT EVENT
// =============================================================================

// PaymentEvent is one recorded payment. Fields are kept as stored; use
// ParsedDate and ParsedAmount to interpret them.
type PaymentEvent struct {
	Date   string          `json:"payment_date"`
	Time   string          `json:"payment_time"`
	Amount json.RawMessage `json:"payment_amount"`
}

// NewPaymentEvent builds an event stamped with at.
func NewPaymentEvent(at time.Time, amount decimal.Decimal) PaymentEvent {
	return PaymentEvent{
		Date:   at.Format(DateLayout),
		Time:   at.Format(TimeLayout),
		Amount: json.RawMessage(amount.String()),
	}
}

// ParsedDate returns the payment date, or false if it is not a
// year-month-day date. Month and day may be unpadded ("2025-1-6").
func (e PaymentEvent) ParsedDate() (Date, bool) {
	if d, err := ParseDate(e.Date); err == nil {
		return d, true
	}
	t, err := time.Parse(looseDateLayout, e.Date)
	if err != nil {
		return Date{}, false
	}
	return DateOf(t), true
}

const looseDateLayout = "2006-1-2"

// ParsedAmount returns the payment amount. Both JSON numbers and numeric
// strings are accepted.
func (e PaymentEvent) ParsedAmount() (decimal.Decimal, bool) {
	raw := bytes.TrimSpace(e.Amount)
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, false
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, false
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// =============================================================================
// YEAR RECORD
// =============================================================================

// YearRecord groups the payments of one calendar year by month.
type YearRecord struct {
	Year   int
	Months map[time.Month][]PaymentEvent

	// unparsed holds month entries that could not be interpreted, keyed by
	// their original key.
	unparsed map[string]json.RawMessage
	// raw holds the whole entry when it could not be interpreted at all.
	raw json.RawMessage
}

// Valid reports whether the entry was understood. Invalid entries are
// preserved but ignored by the index.
func (r YearRecord) Valid() bool { return r.raw == nil }

// UnparsedKeys returns the month keys that were kept verbatim.
func (r YearRecord) UnparsedKeys() []string {
	keys := make([]string, 0, len(r.unparsed))
	for k := range r.unparsed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON decodes one year entry without ever failing.
func (r *YearRecord) UnmarshalJSON(b []byte) error {
	var wire struct {
		Year   json.RawMessage            `json:"year"`
		Months map[string]json.RawMessage `json:"months"`
	}
	var year int
	if err := json.Unmarshal(b, &wire); err != nil || json.Unmarshal(wire.Year, &year) != nil {
		*r = YearRecord{raw: append(json.RawMessage(nil), b...)}
		return nil
	}

	rec := YearRecord{Year: year, Months: make(map[time.Month][]PaymentEvent)}

	// Exact month names claim their bucket before any variant spelling
	// ("JANUARY", "january") can.
	keys := make([]string, 0, len(wire.Months))
	for k := range wire.Months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sort.SliceStable(keys, func(i, j int) bool {
		return isMonthName(keys[i]) && !isMonthName(keys[j])
	})

	for _, key := range keys {
		value := wire.Months[key]
		month, ok := monthKey(key)
		var events []PaymentEvent
		if ok {
			if _, dup := rec.Months[month]; dup {
				ok = false
			} else if err := json.Unmarshal(value, &events); err != nil {
				ok = false
			}
		}
		if !ok {
			if rec.unparsed == nil {
				rec.unparsed = make(map[string]json.RawMessage)
			}
			rec.unparsed[key] = value
			continue
		}
		if events == nil {
			events = []PaymentEvent{}
		}
		rec.Months[month] = events
	}

	*r = rec
	return nil
}

// MarshalJSON writes months in calendar order, followed by any unparsed keys.
func (r YearRecord) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"year":%d,"months":{`, r.Year)

	first := true
	written := make(map[string]bool)
	writeKey := func(key string, value []byte) error {
		written[key] = true
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
		return nil
	}

	for m := time.January; m <= time.December; m++ {
		events, ok := r.Months[m]
		if !ok {
			continue
		}
		if events == nil {
			events = []PaymentEvent{}
		}
		value, err := json.Marshal(events)
		if err != nil {
			return nil, err
		}
		if err := writeKey(m.String(), value); err != nil {
			return nil, err
		}
	}
	for _, key := range r.UnparsedKeys() {
		// An unreadable "January" next to a January bucket is renamed
		// rather than written as a duplicate key.
		out := key
		for written[out] || (out != key && r.unparsed[out] != nil) {
			out += unparsedSuffix
		}
		if err := writeKey(out, r.unparsed[key]); err != nil {
			return nil, err
		}
	}

	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// =============================================================================
// PAYMENT DATA
// =============================================================================

// PaymentData is the full payment history of a booking, one entry per year.
type PaymentData []YearRecord

// ParsePaymentData decodes a stored document. Empty input and JSON null
// decode to an empty history. Only a document that is not a JSON array at
// all is an error.
func ParsePaymentData(b []byte) (PaymentData, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return PaymentData{}, nil
	}
	var data PaymentData
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("payment data is not a list of year entries: %w", err)
	}
	return data, nil
}

// Encode returns the JSON document. An empty history encodes as [].
func (d PaymentData) Encode() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]YearRecord(d))
}

// Record appends ev to the (year, month) bucket, creating the year entry or
// the month bucket when missing.
func (d *PaymentData) Record(year int, month time.Month, ev PaymentEvent) {
	for i := range *d {
		rec := &(*d)[i]
		if !rec.Valid() || rec.Year != year {
			continue
		}
		if rec.Months == nil {
			rec.Months = make(map[time.Month][]PaymentEvent)
		}
		rec.Months[month] = append(rec.Months[month], ev)
		return
	}
	*d = append(*d, YearRecord{
		Year:   year,
		Months: map[time.Month][]PaymentEvent{month: {ev}},
	})
}

// Events returns the events recorded for a bucket, in recorded order.
func (d PaymentData) Events(year int, month time.Month) []PaymentEvent {
	var out []PaymentEvent
	for _, rec := range d {
		if rec.Valid() && rec.Year == year {
			out = append(out, rec.Months[month]...)
		}
	}
	return out
}

// unparsedSuffix renames an unreadable month entry whose key collides
// with a month being written.
const unparsedSuffix = "#unparsed"

func isMonthName(key string) bool { return monthNames[key] }

var monthNames = func() map[string]bool {
	m := make(map[string]bool, 12)
	for month := time.January; month <= time.December; month++ {
		m[month.String()] = true
	}
	return m
}()

// monthKey matches a stored month key. Case is ignored, surrounding
// whitespace is not.
func monthKey(key string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(key, m.String()) {
			return m, true
		}
	}
	return 0, false
}

// ParseMonth parses a full English month name, ignoring case.
func ParseMonth(name string) (time.Month, bool) {
	return monthKey(strings.TrimSpace(name))
}
