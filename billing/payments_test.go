package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rental-engine/billing"
)

func TestPaymentData_KeepsStoredLayout(t *testing.T) {
	data := parse(t, januaryPaid)

	out, err := data.Encode()
	require.NoError(t, err)

	assert.Equal(t, januaryPaid, string(out))
}

func TestPaymentData_PreservesWhatItCannotRead(t *testing.T) {
	// GIVEN: A stored document with a broken entry and a bogus month key
	doc := `["legacy",{"year":2025,"months":{"Foo":[1,2],"January":[{"payment_date":"2025-01-16","payment_time":"10:00:00","payment_amount":1000}]}}]`
	data := parse(t, doc)

	// WHEN: Recording a new payment and writing the document back
	data.Record(2025, time.February, billing.NewPaymentEvent(
		time.Date(2025, 2, 15, 9, 30, 0, 0, time.UTC), decimal.NewFromInt(1200)))
	out, err := data.Encode()
	require.NoError(t, err)

	// THEN: Nothing stored is lost, and months come out in calendar order
	assert.JSONEq(t, `["legacy",{"year":2025,"months":{
		"January":[{"payment_date":"2025-01-16","payment_time":"10:00:00","payment_amount":1000}],
		"February":[{"payment_date":"2025-02-15","payment_time":"09:30:00","payment_amount":1200}],
		"Foo":[1,2]
	}}]`, string(out))
	assert.Equal(t, []string{"Foo"}, data[1].UnparsedKeys())
}

func TestPaymentData_RecordAppendsToBucket(t *testing.T) {
	data := parse(t, januaryPaid)
	at := time.Date(2025, 1, 28, 12, 0, 0, 0, time.UTC)

	data.Record(2025, time.January, billing.NewPaymentEvent(at, decimal.NewFromInt(200)))
	data.Record(2026, time.March, billing.NewPaymentEvent(at, decimal.NewFromInt(300)))

	require.Len(t, data, 2)
	jan := data.Events(2025, time.January)
	require.Len(t, jan, 2)
	assert.Equal(t, "2025-01-16", jan[0].Date)
	assert.Equal(t, "2025-01-28", jan[1].Date)
	assert.Equal(t, "12:00:00", jan[1].Time)
	assert.Equal(t, 2026, data[1].Year)
	assert.Len(t, data.Events(2026, time.March), 1)
}

func TestParsePaymentData_EmptyAndInvalid(t *testing.T) {
	for _, doc := range []string{"", "null", "  "} {
		data, err := billing.ParsePaymentData([]byte(doc))
		require.NoError(t, err)
		assert.Empty(t, data)

		out, err := data.Encode()
		require.NoError(t, err)
		assert.Equal(t, "[]", string(out))
	}

	_, err := billing.ParsePaymentData([]byte(`{"year":2025}`))
	assert.Error(t, err)
}

func TestPaymentEvent_ParsedAmount(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want string
		ok   bool
	}{
		"integer":        {raw: `1000`, want: "1000", ok: true},
		"float":          {raw: `1200.5`, want: "1200.5", ok: true},
		"numeric string": {raw: `"75.25"`, want: "75.25", ok: true},
		"word":           {raw: `"lots"`, ok: false},
		"null":           {raw: `null`, ok: false},
		"missing":        {raw: ``, ok: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ev := billing.PaymentEvent{Amount: []byte(tc.raw)}
			got, ok := ev.ParsedAmount()
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assertAmount(t, tc.want, got)
			}
		})
	}
}

func TestPaymentData_VariantMonthSpellingRoundTrip(t *testing.T) {
	// GIVEN: A year with both "JANUARY" and "January" keys
	doc := `[{"year":2025,"months":{
		"JANUARY":[{"payment_date":"2025-01-05","payment_time":"08:00:00","payment_amount":900}],
		"January":[{"payment_date":"2025-01-16","payment_time":"10:00:00","payment_amount":1000}]
	}}]`
	data := parse(t, doc)

	// THEN: The exact month name owns the bucket
	jan := data.Events(2025, time.January)
	require.Len(t, jan, 1)
	assert.Equal(t, "2025-01-16", jan[0].Date)
	assert.Equal(t, []string{"JANUARY"}, data[0].UnparsedKeys())

	// WHEN: Recording a payment and reading the document back
	data.Record(2025, time.January, billing.NewPaymentEvent(
		time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC), decimal.NewFromInt(1200)))
	out, err := data.Encode()
	require.NoError(t, err)
	again := parse(t, string(out))

	// THEN: Both events and the variant key survive
	jan = again.Events(2025, time.January)
	require.Len(t, jan, 2)
	assert.Equal(t, "2025-01-16", jan[0].Date)
	assert.Equal(t, "2025-01-20", jan[1].Date)
	assert.Equal(t, []string{"JANUARY"}, again[0].UnparsedKeys())
	assert.Contains(t, string(out), `"payment_date":"2025-01-05"`)
}

func TestPaymentData_PaddedMonthKeyIsNotAMonth(t *testing.T) {
	data := parse(t, `[{"year":2025,"months":{" January":[{"payment_date":"2025-01-05","payment_time":"08:00:00","payment_amount":900}]}}]`)

	assert.Empty(t, data.Events(2025, time.January))
	assert.Equal(t, []string{" January"}, data[0].UnparsedKeys())
}

func TestPaymentData_UnreadableMonthIsNeverWrittenTwice(t *testing.T) {
	// GIVEN: A "January" entry that is not a list of events
	data := parse(t, `[{"year":2025,"months":{"January":"paid in cash"}}]`)
	require.Empty(t, data.Events(2025, time.January))

	// WHEN: A January payment is recorded
	data.Record(2025, time.January, billing.NewPaymentEvent(
		time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC), decimal.NewFromInt(1200)))
	out, err := data.Encode()
	require.NoError(t, err)

	// THEN: The new payment keeps the month name, the old value is kept aside
	assert.JSONEq(t, `[{"year":2025,"months":{
		"January":[{"payment_date":"2025-01-20","payment_time":"09:00:00","payment_amount":1200}],
		"January#unparsed":"paid in cash"
	}}]`, string(out))
	assert.Len(t, parse(t, string(out)).Events(2025, time.January), 1)
}

func TestPaymentEvent_ParsedDate(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want string
		ok   bool
	}{
		"padded":      {raw: "2025-01-16", want: "2025-01-16", ok: true},
		"unpadded":    {raw: "2025-1-6", want: "2025-01-06", ok: true},
		"day first":   {raw: "16/01/2025", ok: false},
		"empty":       {raw: "", ok: false},
		"not a month": {raw: "2025-13-01", ok: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := billing.PaymentEvent{Date: tc.raw}.ParsedDate()
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got.String())
			}
		})
	}
}
