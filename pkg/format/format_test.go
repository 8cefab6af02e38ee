package format

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spothound/hamalert-bridge/pkg/protocol"
)

func baseRecord(source string) *protocol.SpotRecord {
	return &protocol.SpotRecord{
		FullCallsign: "OE5XYZ/P",
		Callsign:     "OE5XYZ",
		Spotter:      "DL1ABC",
		Frequency:    "14.285",
		Mode:         "ssb",
		Time:         "12:34",
		Source:       source,
	}
}

func TestSpotBaseMessage(t *testing.T) {
	now := time.Unix(1700000000, 0)
	got := Spot(baseRecord("cluster"), now)

	assert.Equal(t, "DL1ABC spotted: **OE5XYZ/P** on 14.285 (ssb) at <t:1700000000:R>", got)
}

func TestSpotTimestampUsesCallTime(t *testing.T) {
	rec := baseRecord("cluster")
	// The record's own time field must not leak into the output; the
	// relative marker always comes from the clock at formatting time.
	first := Spot(rec, time.Unix(100, 0))
	second := Spot(rec, time.Unix(200, 0))

	assert.Contains(t, first, "<t:100:R>")
	assert.Contains(t, second, "<t:200:R>")
	assert.NotContains(t, first, rec.Time)
}

func TestSpotSOTA(t *testing.T) {
	t.Run("with summit name", func(t *testing.T) {
		rec := baseRecord(protocol.SourceSOTAWatch)
		summit := "Mount Test"
		rec.SummitName = &summit

		got := Spot(rec, time.Unix(0, 0))

		require.True(t, strings.HasPrefix(got, "🏔️ SOTA "), "expected SOTA marker prefix, got %q", got)
		assert.Contains(t, got, "\nSummit: Mount Test")
	})

	t.Run("without summit name", func(t *testing.T) {
		got := Spot(baseRecord(protocol.SourceSOTAWatch), time.Unix(0, 0))

		require.True(t, strings.HasPrefix(got, "🏔️ SOTA "))
		assert.NotContains(t, got, "Summit:")
	})
}

func TestSpotPOTA(t *testing.T) {
	ref := "K-1234"
	name := "Test State Park"

	t.Run("with park reference and name", func(t *testing.T) {
		rec := baseRecord(protocol.SourcePOTA)
		rec.WWFFRef = &ref
		rec.WWFFName = &name

		got := Spot(rec, time.Unix(0, 0))

		require.True(t, strings.HasPrefix(got, "🌳 POTA "))
		assert.Contains(t, got, "K-1234 Test State Park")
		assert.Contains(t, got, "https://pota.app/#/park/K-1234")
	})

	t.Run("missing reference", func(t *testing.T) {
		rec := baseRecord(protocol.SourcePOTA)
		rec.WWFFName = &name

		got := Spot(rec, time.Unix(0, 0))

		require.True(t, strings.HasPrefix(got, "🌳 POTA "))
		assert.NotContains(t, got, "Park:")
		assert.NotContains(t, got, "pota.app")
	})

	t.Run("missing name", func(t *testing.T) {
		rec := baseRecord(protocol.SourcePOTA)
		rec.WWFFRef = &ref

		got := Spot(rec, time.Unix(0, 0))

		require.True(t, strings.HasPrefix(got, "🌳 POTA "))
		assert.NotContains(t, got, "Park:")
	})
}

func TestSpotUnknownSourceHasNoMarker(t *testing.T) {
	for _, source := range []string{"cluster", "rbn", ""} {
		t.Run(fmt.Sprintf("source %q", source), func(t *testing.T) {
			got := Spot(baseRecord(source), time.Unix(0, 0))

			assert.True(t, strings.HasPrefix(got, "DL1ABC spotted:"), "unexpected prefix: %q", got)
			assert.NotContains(t, got, "SOTA")
			assert.NotContains(t, got, "POTA")
		})
	}
}

func TestSpotDeterministicForFixedInputs(t *testing.T) {
	rec := baseRecord(protocol.SourceSOTAWatch)
	summit := "Hochficht"
	rec.SummitName = &summit
	now := time.Unix(1700000000, 0)

	assert.Equal(t, Spot(rec, now), Spot(rec, now))
}
