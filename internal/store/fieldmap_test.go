package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldMapScalarRoundTrip(t *testing.T) {
	fm := NewFieldMap()
	fm.SetString("id", "PTN_01")
	fm.SetInt("api_rate_limit", 500)
	fm.SetFloat("rating", 4.25)
	fm.SetBool("enabled", true)

	d := NewDecoder(map[string]string(fm))
	require.True(t, d.Exists("id"))
	assert.Equal(t, "PTN_01", d.String("id"))
	assert.Equal(t, int64(500), d.Int("api_rate_limit"))
	assert.Equal(t, 4.25, d.Float("rating"))
	assert.True(t, d.Bool("enabled"))
	require.NoError(t, d.Err())
}

func TestFieldMapBooleanFalseSurvives(t *testing.T) {
	fm := NewFieldMap()
	fm.SetBool("enabled", false)

	// The stored form is the non-empty literal "false" and must not decode
	// as truthy.
	assert.Equal(t, "false", fm["enabled"])
	d := NewDecoder(map[string]string(fm))
	assert.False(t, d.Bool("enabled"))
}

func TestFieldMapTimeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

	fm := NewFieldMap()
	fm.SetTime("created_at", ts)
	fm.SetTime("signed_at", time.Time{})

	d := NewDecoder(map[string]string(fm))
	assert.True(t, ts.Equal(d.Time("created_at")))
	assert.True(t, d.Time("signed_at").IsZero())
	require.NoError(t, d.Err())
}

func TestFieldMapJSONRoundTrip(t *testing.T) {
	type line struct {
		SKU string `json:"sku"`
		Qty int64  `json:"qty"`
	}

	fm := NewFieldMap()
	require.NoError(t, fm.SetJSON("line_items", []line{{SKU: "SVC-1", Qty: 3}, {SKU: "SVC-2", Qty: 1}}))
	require.NoError(t, fm.SetJSON("tags", []string(nil)))
	require.NoError(t, fm.SetJSON("metadata", map[string]string{"region": "emea"}))

	assert.Empty(t, fm["tags"], "nil collections store as empty")

	d := NewDecoder(map[string]string(fm))
	var items []line
	d.JSON("line_items", &items)
	require.NoError(t, d.Err())
	require.Len(t, items, 2)
	assert.Equal(t, "SVC-2", items[1].SKU)

	var tags []string
	d.JSON("tags", &tags)
	assert.Nil(t, tags)

	var meta map[string]string
	d.JSON("metadata", &meta)
	assert.Equal(t, "emea", meta["region"])
}

func TestDecoderEmptyRecordIsNotFound(t *testing.T) {
	d := NewDecoder(map[string]string{})
	assert.False(t, d.Exists("id"))

	// Present but empty identifier is equally absent.
	d = NewDecoder(map[string]string{"id": ""})
	assert.False(t, d.Exists("id"))
}

func TestDecoderStickyError(t *testing.T) {
	d := NewDecoder(map[string]string{
		"id":     "DEAL_01",
		"value":  "not-a-number",
		"count":  "also-bad",
		"rating": "4.5",
	})

	assert.Zero(t, d.Float("value"))
	assert.Zero(t, d.Int("count"))
	assert.Equal(t, 4.5, d.Float("rating"))

	err := d.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value", "first failure wins")
}

func TestDecoderMissingFieldsDecodeToZero(t *testing.T) {
	d := NewDecoder(map[string]string{"id": "QTE_01"})
	assert.Zero(t, d.Int("version"))
	assert.Zero(t, d.Float("total"))
	assert.False(t, d.Bool("is_active"))
	assert.True(t, d.Time("created_at").IsZero())
	require.NoError(t, d.Err())
}
