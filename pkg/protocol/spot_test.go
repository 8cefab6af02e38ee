package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	bridgeerrors "github.com/spothound/hamalert-bridge/pkg/errors"
)

const validSpot = `{"fullCallsign":"OE5XYZ/P","callsign":"OE5XYZ","frequency":"14.285","mode":"ssb","spotter":"DL1ABC","time":"12:34","source":"sotawatch","summitName":"Mount Test"}`

func TestParseSpotValid(t *testing.T) {
	rec, err := ParseSpot(validSpot)
	if err != nil {
		t.Fatalf("ParseSpot returned error: %v", err)
	}

	if rec.FullCallsign != "OE5XYZ/P" {
		t.Errorf("FullCallsign = %q, want OE5XYZ/P", rec.FullCallsign)
	}
	if rec.Frequency != "14.285" {
		t.Errorf("Frequency = %q, want 14.285", rec.Frequency)
	}
	if rec.Source != SourceSOTAWatch {
		t.Errorf("Source = %q, want %q", rec.Source, SourceSOTAWatch)
	}
	if rec.SummitName == nil || *rec.SummitName != "Mount Test" {
		t.Errorf("SummitName = %v, want Mount Test", rec.SummitName)
	}
	if rec.WWFFRef != nil {
		t.Errorf("WWFFRef should be nil when key absent, got %v", *rec.WWFFRef)
	}
}

func TestParseSpotMissingRequiredKeys(t *testing.T) {
	required := []string{"fullCallsign", "callsign", "frequency", "mode", "spotter", "time", "source"}

	for _, key := range required {
		t.Run("missing "+key, func(t *testing.T) {
			var fields map[string]interface{}
			if err := json.Unmarshal([]byte(validSpot), &fields); err != nil {
				t.Fatal(err)
			}
			delete(fields, key)
			line, err := json.Marshal(fields)
			if err != nil {
				t.Fatal(err)
			}

			rec, err := ParseSpot(string(line))
			if rec != nil {
				t.Fatal("expected nil record for incomplete input")
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if errors.Is(err, ErrNotStructured) {
				t.Fatal("incomplete record should not be classified as unstructured")
			}

			be, ok := err.(bridgeerrors.BridgeError)
			if !ok {
				t.Fatalf("expected BridgeError, got %T", err)
			}
			if be.Category() != bridgeerrors.CategoryValidation {
				t.Errorf("category = %s, want validation", be.Category())
			}
		})
	}
}

func TestParseSpotPresenceNotValue(t *testing.T) {
	// Required keys need only exist; empty values are acceptable.
	line := `{"fullCallsign":"","callsign":"","frequency":"","mode":"","spotter":"","time":"","source":""}`

	rec, err := ParseSpot(line)
	if err != nil {
		t.Fatalf("record with empty values should validate, got %v", err)
	}
	if rec.FullCallsign != "" {
		t.Errorf("FullCallsign = %q, want empty", rec.FullCallsign)
	}
}

func TestParseSpotNotStructured(t *testing.T) {
	for _, line := range []string{
		"",
		"Welcome to the cluster",
		"K1TEST de HamAlert >",
		`["not","an","object"]`,
		`"quoted string"`,
	} {
		t.Run(line, func(t *testing.T) {
			_, err := ParseSpot(line)
			if !errors.Is(err, ErrNotStructured) {
				t.Fatalf("ParseSpot(%q) error = %v, want ErrNotStructured", line, err)
			}
		})
	}
}

func TestParseSpotNumericFrequencyKeepsFormatting(t *testing.T) {
	line := `{"fullCallsign":"W1AW","callsign":"W1AW","frequency":14.0620,"mode":"cw","spotter":"K9XX","time":"01:02","source":"cluster"}`

	rec, err := ParseSpot(line)
	if err != nil {
		t.Fatalf("ParseSpot returned error: %v", err)
	}
	if rec.Frequency != "14.0620" {
		t.Errorf("Frequency = %q, want literal 14.0620 from the wire", rec.Frequency)
	}
}

func TestParseSpotPOTAFields(t *testing.T) {
	line := `{"fullCallsign":"W1AW","callsign":"W1AW","frequency":"7.200","mode":"ssb","spotter":"K9XX","time":"01:02","source":"pota","wwffRef":"K-1234","wwffName":"Test State Park"}`

	rec, err := ParseSpot(line)
	if err != nil {
		t.Fatalf("ParseSpot returned error: %v", err)
	}
	if rec.WWFFRef == nil || *rec.WWFFRef != "K-1234" {
		t.Errorf("WWFFRef = %v, want K-1234", rec.WWFFRef)
	}
	if rec.WWFFName == nil || *rec.WWFFName != "Test State Park" {
		t.Errorf("WWFFName = %v, want Test State Park", rec.WWFFName)
	}
	if rec.SummitName != nil {
		t.Errorf("SummitName should be nil for pota records")
	}
}
