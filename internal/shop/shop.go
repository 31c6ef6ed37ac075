// Package shop holds the shop identity, pricing table and intake flags
// shared by both roles of a peer pair.
package shop

import (
	"fmt"
	"math/rand/v2"
)

// Pricing holds the four fixed per-page rates, in the shop's smallest
// currency unit. The JSON keys are part of the replicated shop snapshot.
type Pricing struct {
	BWSingle    int `json:"bw_ss" yaml:"bw_single"`
	BWDouble    int `json:"bw_ds" yaml:"bw_double"`
	ColorSingle int `json:"color_ss" yaml:"color_single"`
	ColorDouble int `json:"color_ds" yaml:"color_double"`
}

// DefaultPricing returns the rate card applied before the owner has run
// the setup wizard.
func DefaultPricing() Pricing {
	return Pricing{BWSingle: 2, BWDouble: 3, ColorSingle: 10, ColorDouble: 15}
}

// CostFor computes the total cost of a job at this rate card.
func (p Pricing) CostFor(pageCount int, isColor, isDoubleSided bool) int {
	rate := p.BWSingle
	switch {
	case isColor && isDoubleSided:
		rate = p.ColorDouble
	case isColor:
		rate = p.ColorSingle
	case isDoubleSided:
		rate = p.BWDouble
	}
	return rate * pageCount
}

// Shop is the configuration of one print shop. ID doubles as the
// rendezvous key input; changing it invalidates the current peer session.
type Shop struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Location     string  `json:"location" yaml:"location"`
	MapsURL      string  `json:"mapsUrl,omitempty" yaml:"maps_url,omitempty"`
	PrinterCount int     `json:"printerCount" yaml:"printer_count"`
	PPM          int     `json:"ppm" yaml:"ppm"`
	IsPaused     bool    `json:"isPaused" yaml:"is_paused"`
	IsConfigured bool    `json:"isConfigured" yaml:"is_configured"`
	Pricing      Pricing `json:"pricing" yaml:"pricing"`
}

// NewDefault returns the first-run shop configuration with a freshly
// generated four-digit identity.
func NewDefault() Shop {
	return Shop{
		ID:           fmt.Sprintf("SHOP-%04d", 1000+rand.IntN(9000)),
		PrinterCount: 1,
		PPM:          20,
		Pricing:      DefaultPricing(),
	}
}
