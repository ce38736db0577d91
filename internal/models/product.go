package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Product is an immutable catalog entry
type Product struct {
	ID           string      `json:"product_id"`
	Name         string      `json:"product_name"`
	Price        float64     `json:"price"`
	HeadsetType  string      `json:"headset_type"`
	CoreFunction string      `json:"core_function"`
	Functions    []string    `json:"core_function_list"`
	Brand        string      `json:"brand"`
	BatteryLife  int         `json:"battery_life"`
	SalesVolume  SalesVolume `json:"sales_volume"`
	Scenario     string      `json:"scenario"`
}

// SalesVolume is a sales bucket such as "5000" or "5000+" (at least 5000)
type SalesVolume struct {
	Value   int
	AtLeast bool
}

func ParseSalesVolume(raw string) (SalesVolume, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SalesVolume{}, nil
	}
	atLeast := strings.HasSuffix(raw, "+")
	n, err := strconv.Atoi(strings.TrimSuffix(raw, "+"))
	if err != nil {
		return SalesVolume{}, fmt.Errorf("invalid sales volume %q: %w", raw, err)
	}
	return SalesVolume{Value: n, AtLeast: atLeast}, nil
}

func (v SalesVolume) String() string {
	if v.AtLeast {
		return strconv.Itoa(v.Value) + "+"
	}
	return strconv.Itoa(v.Value)
}

func (v SalesVolume) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *SalesVolume) UnmarshalText(b []byte) error {
	parsed, err := ParseSalesVolume(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// SplitFunctions parses a comma-separated function field into tags,
// dropping blanks. Full-width commas are accepted as separators.
func SplitFunctions(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '，'
	})
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			tags = append(tags, f)
		}
	}
	return tags
}

// ProductSummary is the subset of product fields handed to display and
// persistence. Prior-turn summaries may be partial; only ProductID is
// guaranteed.
type ProductSummary struct {
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name,omitempty"`
	Price        float64 `json:"price,omitempty"`
	HeadsetType  string  `json:"headset_type,omitempty"`
	CoreFunction string  `json:"core_function,omitempty"`
	Brand        string  `json:"brand,omitempty"`
	BatteryLife  int     `json:"battery_life,omitempty"`
	SalesVolume  string  `json:"sales_volume,omitempty"`
}

func (p Product) Summary() ProductSummary {
	s := ProductSummary{
		ProductID:    p.ID,
		ProductName:  p.Name,
		Price:        p.Price,
		HeadsetType:  p.HeadsetType,
		CoreFunction: p.CoreFunction,
		Brand:        p.Brand,
		BatteryLife:  p.BatteryLife,
	}
	if p.SalesVolume != (SalesVolume{}) {
		s.SalesVolume = p.SalesVolume.String()
	}
	return s
}

// Product rebuilds a (possibly partial) product from a stored summary
func (s ProductSummary) Product() Product {
	sales, _ := ParseSalesVolume(s.SalesVolume)
	return Product{
		ID:           s.ProductID,
		Name:         s.ProductName,
		Price:        s.Price,
		HeadsetType:  s.HeadsetType,
		CoreFunction: s.CoreFunction,
		Functions:    SplitFunctions(s.CoreFunction),
		Brand:        s.Brand,
		BatteryLife:  s.BatteryLife,
		SalesVolume:  sales,
	}
}
