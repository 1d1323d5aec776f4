package service

import (
	"encoding/json"
	"testing"
	"time"

	"OptInSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOrder_DestinationPayload(t *testing.T) {
	var raw model.RawOrder
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 42,
		"store_id": "s1",
		"opt_in": "yes",
		"total_price": "19.999",
		"destination": "{\"city\":\"Manchester\",\"province\":\"England\",\"country\":\"United Kingdom\"}",
		"created_at": "2026-02-10 09:30:00"
	}`), &raw))

	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	o, err := buildOrder(&raw, now)
	require.NoError(t, err)

	assert.Equal(t, "42", o.ExternalID)
	assert.True(t, o.OptIn)
	assert.Equal(t, "20", o.TotalPrice.String())
	assert.Equal(t, "Manchester", *o.City)
	assert.Equal(t, "England", *o.Province)
	assert.Equal(t, "United Kingdom", *o.Country)
	assert.Equal(t, time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC), o.PlacedAt)
	assert.Equal(t, now, o.IngestedAt)

	src, ok := sourceGeoOf(o)
	require.True(t, ok)
	assert.Contains(t, src.Destination, "Manchester")
}

func TestBuildOrder_FlatColumnsWinOverDestination(t *testing.T) {
	raw := rawOrder("7", false, "5", "Leeds", "UK")
	raw.Destination = json.RawMessage(`{"city":"Paris","country":"France"}`)

	o, err := buildOrder(&raw, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Leeds", *o.City)
	assert.Equal(t, "United Kingdom", *o.Country)
	assert.Nil(t, o.Province)
}

func TestBuildOrder_MissingKey(t *testing.T) {
	raw := rawOrder("", true, "1", "Leeds", "UK")
	_, err := buildOrder(&raw, time.Now())
	assert.ErrorIs(t, err, errMissingExternalID)
}

func TestParsePrice(t *testing.T) {
	cases := map[string]string{
		"":          "0",
		"12.5":      "12.5",
		"$1,234.56": "1234.56",
		"€3":        "3",
		"-4.00":     "0",
		"abc":       "0",
	}
	for in, want := range cases {
		assert.Equal(t, want, parsePrice(in).String(), in)
	}
}

func TestParseSourceTime(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC), parseSourceTime("2026-05-06T07:08:09Z", fallback))
	assert.Equal(t, time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC), parseSourceTime("2026-05-06", fallback))
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), parseSourceTime("1767225600", fallback))
	assert.Equal(t, time.UnixMilli(1767225600123).UTC(), parseSourceTime("1767225600123", fallback))
	assert.Equal(t, fallback, parseSourceTime("yesterday", fallback))
	assert.Equal(t, fallback, parseSourceTime("", fallback))
}
