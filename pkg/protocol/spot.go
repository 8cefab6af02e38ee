// Package protocol defines the structured records received over the alerting
// session once JSON mode has been negotiated, and the decoding rules that
// separate spot records from informational chatter.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	bridgeerrors "github.com/spothound/hamalert-bridge/pkg/errors"
)

// Known spot sources carrying source-specific optional metadata.
const (
	SourceSOTAWatch = "sotawatch"
	SourcePOTA      = "pota"
)

// ErrNotStructured indicates a line that is not a JSON object. Such lines are
// not errors from the session's point of view: they are informational output
// from the remote and are forwarded verbatim.
var ErrNotStructured = errors.New("line is not structured data")

// requiredKeys must all be present for a record to be valid. Presence is
// checked by key existence, not by non-empty value.
var requiredKeys = []string{
	"fullCallsign",
	"callsign",
	"frequency",
	"mode",
	"spotter",
	"time",
	"source",
}

// SpotRecord is one validated spot. Frequency and time are kept as text,
// preserving the formatting the remote sent. Optional fields are nil when the
// key was absent from the wire record.
type SpotRecord struct {
	FullCallsign string
	Callsign     string
	Spotter      string
	Frequency    string
	Mode         string
	Time         string
	Source       string

	// SummitName is present on sotawatch records.
	SummitName *string

	// WWFFRef and WWFFName are present on pota records.
	WWFFRef  *string
	WWFFName *string
}

// ParseSpot decodes one line into a SpotRecord.
//
// A line that is not a JSON object yields ErrNotStructured. A JSON object
// missing any required key yields a validation error naming the missing keys;
// decoding fails closed rather than defaulting fields.
func ParseSpot(line string) (*SpotRecord, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotStructured, err)
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, bridgeerrors.InvalidRecord(missing)
	}

	rec := &SpotRecord{
		FullCallsign: stringValue(raw["fullCallsign"]),
		Callsign:     stringValue(raw["callsign"]),
		Spotter:      stringValue(raw["spotter"]),
		Frequency:    stringValue(raw["frequency"]),
		Mode:         stringValue(raw["mode"]),
		Time:         stringValue(raw["time"]),
		Source:       stringValue(raw["source"]),
	}

	if v, ok := raw["summitName"]; ok {
		s := stringValue(v)
		rec.SummitName = &s
	}
	if v, ok := raw["wwffRef"]; ok {
		s := stringValue(v)
		rec.WWFFRef = &s
	}
	if v, ok := raw["wwffName"]; ok {
		s := stringValue(v)
		rec.WWFFName = &s
	}

	return rec, nil
}

// stringValue renders a decoded JSON value as text. json.Number keeps the
// literal digits from the wire, so "14.0625" is never reformatted.
func stringValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", x)
	}
}
