// Package format renders spot records as display text. Formatting is pure:
// no I/O, no state, and it cannot fail once a record has passed validation.
package format

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spothound/hamalert-bridge/pkg/protocol"
)

const (
	sotaMarker = "🏔️ SOTA "
	potaMarker = "🌳 POTA "

	parkURLBase = "https://pota.app/#/park/"
)

// Spot renders one record. The embedded timestamp is a Discord relative-time
// marker built from now, not from the record's own time field, so the reader
// sees a live "x minutes ago" at the point of delivery.
func Spot(rec *protocol.SpotRecord, now time.Time) string {
	msg := fmt.Sprintf("%s spotted: **%s** on %s (%s) at <t:%d:R>",
		rec.Spotter, rec.FullCallsign, rec.Frequency, rec.Mode, now.Unix())

	switch rec.Source {
	case protocol.SourceSOTAWatch:
		msg = sotaMarker + msg
		if rec.SummitName != nil {
			msg += "\nSummit: " + *rec.SummitName
		}
	case protocol.SourcePOTA:
		msg = potaMarker + msg
		if rec.WWFFRef != nil && rec.WWFFName != nil {
			msg += fmt.Sprintf("\nPark: %s %s\n%s%s",
				*rec.WWFFRef, *rec.WWFFName, parkURLBase, url.PathEscape(*rec.WWFFRef))
		}
	}

	return msg
}
