package model

import (
	"encoding/json"
	"testing"
)

func TestParseUpdateKindAliases(t *testing.T) {
	cases := map[string]UpdateKind{
		"added":   KindAdded,
		"removed": KindRemoved,
		"dropped": KindRemoved,
		"droped":  KindRemoved,
		" Droped": KindRemoved,
	}
	for in, want := range cases {
		got, err := ParseUpdateKind(in)
		if err != nil {
			t.Fatalf("ParseUpdateKind(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseUpdateKind(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseUpdateKind("sold"); err == nil {
		t.Error("ParseUpdateKind(\"sold\") succeeded")
	}
}

func TestSeatOfferDecodesLooseBackendShapes(t *testing.T) {
	raw := `[
		{"section_name":"FLOOR","section_row":12,"place_number":"7","price":12550,"offer_description":"Standard"},
		{"section_name":"202","section_row":"B","place_number":3,"price":"N/A"},
		{"price":null},
		{"price":"9900"},
		{"price":""}
	]`
	var seats []SeatOffer
	if err := json.Unmarshal([]byte(raw), &seats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if seats[0].SectionRow != "12" || seats[0].PlaceNumber != "7" {
		t.Errorf("numeric fields not normalised: %+v", seats[0])
	}
	if got := seats[0].Price.String(); got != "125.50" {
		t.Errorf("price = %q, want 125.50", got)
	}
	if seats[1].Price.Known || seats[2].Price.Known || seats[4].Price.Known {
		t.Error("unparseable price reported as known")
	}
	if got := seats[1].Price.String(); got != "N/A" {
		t.Errorf("unknown price = %q, want N/A", got)
	}
	if got := seats[3].Price; got != PriceOf(9900) {
		t.Errorf("string price = %+v, want 9900", got)
	}
	if got := seats[2].SectionName.Or("Unknown"); got != "Unknown" {
		t.Errorf("Or default = %q", got)
	}
}

func TestUpdateKindUnmarshalRejectsUnknown(t *testing.T) {
	var u AvailabilityUpdate
	if err := json.Unmarshal([]byte(`{"update_type":"exploded","seats":[]}`), &u); err == nil {
		t.Fatal("expected error for unknown update_type")
	}
	if err := json.Unmarshal([]byte(`{"update_type":"droped","seats":[],"timestamp":12.5}`), &u); err != nil {
		t.Fatal(err)
	}
	if u.Kind != KindRemoved || u.Timestamp != 12.5 {
		t.Fatalf("got %+v", u)
	}
}
