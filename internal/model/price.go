package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Price is a decimal amount in euros. The API serializes decimals as quoted
// strings ("1490.00"); bare JSON numbers are accepted too.
type Price float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("price %q: %w", b, err)
	}
	*p = Price(v)
	return nil
}

// Float returns the amount, or nil when p is nil.
func (p *Price) Float() *float64 {
	if p == nil {
		return nil
	}
	v := float64(*p)
	return &v
}
