package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SeatOffer is an immutable snapshot of one inventory line at the moment
// of an availability update.
type SeatOffer struct {
	SectionName      FlexString `json:"section_name,omitempty"`
	SectionRow       FlexString `json:"section_row,omitempty"`
	PlaceNumber      FlexString `json:"place_number,omitempty"`
	Price            Price      `json:"price"`
	OfferDescription FlexString `json:"offer_description,omitempty"`
}

// FlexString accepts either a JSON string or a JSON number. The backend
// is not consistent about which it sends for rows and seat numbers.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// Or returns the value, or def when it is empty.
func (f FlexString) Or(def string) string {
	if f == "" {
		return def
	}
	return string(f)
}

// Price is an amount in hundredths of the currency unit. Known is false
// when the backend sent null, an empty string, "N/A" or anything else
// that is not a number.
type Price struct {
	Minor int64
	Known bool
}

// PriceOf returns a known price.
func PriceOf(minor int64) Price { return Price{Minor: minor, Known: true} }

func (p *Price) UnmarshalJSON(b []byte) error {
	*p = Price{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*p = PriceOf(int64(math.Round(v)))
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Known {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, p.Minor, 10), nil
}

// String renders the price divided by 100, or "N/A".
func (p Price) String() string {
	if !p.Known {
		return "N/A"
	}
	sign := ""
	minor := p.Minor
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
