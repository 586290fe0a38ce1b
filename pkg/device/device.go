// Package device maps device classes to logical canvas sizes and to the scale
// factors applied to non-dimension values such as font sizes and spacing.
//
// The two concerns are distinct: the canvas of each device has its own fixed
// logical size, while Scale describes how content values shrink or grow when
// a design is previewed on another device.
package device

import (
	"fmt"
	"strings"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
)

// Device is a preview device class
type Device string

const (
	Desktop Device = "desktop"
	Tablet  Device = "tablet"
	Mobile  Device = "mobile"
)

// All lists the supported devices, reference device first
var All = []Device{Desktop, Tablet, Mobile}

// Reference is the device that all scale factors are relative to
const Reference = Desktop

// Factor holds independent horizontal and vertical scale factors
type Factor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Profile describes one device class
type Profile struct {
	Canvas canvas.Size `json:"canvas" yaml:"canvas"`
	// Content is the scale of content values relative to the reference device
	Content float64 `json:"content" yaml:"content"`
}

var defaultProfiles = map[Device]Profile{
	Desktop: {Canvas: canvas.Size{Width: 800, Height: 600}, Content: 1},
	Tablet:  {Canvas: canvas.Size{Width: 768, Height: 1024}, Content: 0.85},
	Mobile:  {Canvas: canvas.Size{Width: 375, Height: 667}, Content: 0.65},
}

// Provider answers dimension and scale lookups. The zero value is not usable;
// use NewProvider or Default.
type Provider struct {
	profiles map[Device]Profile
}

// NewProvider creates a provider with the built-in table, overridden by any
// profile in overrides with a positive canvas size
func NewProvider(overrides map[Device]Profile) *Provider {
	p := &Provider{profiles: make(map[Device]Profile, len(defaultProfiles))}
	for d, prof := range defaultProfiles {
		p.profiles[d] = prof
	}
	for d, prof := range overrides {
		if prof.Canvas.Width <= 0 || prof.Canvas.Height <= 0 {
			continue
		}
		if prof.Content <= 0 {
			prof.Content = p.profiles[d].Content
			if prof.Content <= 0 {
				prof.Content = 1
			}
		}
		p.profiles[d] = prof
	}
	return p
}

var defaultProvider = NewProvider(nil)

// Default returns the provider with the built-in device table
func Default() *Provider {
	return defaultProvider
}

func (p *Provider) profile(d Device) Profile {
	if prof, ok := p.profiles[d]; ok {
		return prof
	}
	return p.profiles[Reference]
}

// Dimensions returns the fixed logical canvas size for a device.
// Unknown devices fall back to the reference device.
func (p *Provider) Dimensions(d Device) canvas.Size {
	return p.profile(d).Canvas
}

// Scale returns the factors that convert content values authored for from
// into values for to
func (p *Provider) Scale(from, to Device) Factor {
	f := p.profile(to).Content / p.profile(from).Content
	return Factor{X: f, Y: f}
}

// CanvasScale returns the ratio between the logical canvas sizes of two
// devices. Layout code uses it when mapping positions between devices.
func (p *Provider) CanvasScale(from, to Device) Factor {
	a, b := p.Dimensions(from), p.Dimensions(to)
	return Factor{X: b.Width / a.Width, Y: b.Height / a.Height}
}

// ScaleValue scales a content value such as a font size from one device to another
func (p *Provider) ScaleValue(v float64, from, to Device) float64 {
	return v * p.Scale(from, to).X
}

// Dimensions returns the logical canvas size of d using the default table
func Dimensions(d Device) canvas.Size {
	return defaultProvider.Dimensions(d)
}

// Scale returns content scale factors using the default table
func Scale(from, to Device) Factor {
	return defaultProvider.Scale(from, to)
}

// Parse converts a string into a device class
func Parse(s string) (Device, error) {
	switch Device(strings.ToLower(strings.TrimSpace(s))) {
	case Desktop:
		return Desktop, nil
	case Tablet:
		return Tablet, nil
	case Mobile:
		return Mobile, nil
	}
	return "", fmt.Errorf("unknown device %q (want desktop, tablet or mobile)", s)
}

// Next returns the device after d in All, wrapping around
func Next(d Device) Device {
	for i, candidate := range All {
		if candidate == d {
			return All[(i+1)%len(All)]
		}
	}
	return Reference
}

// IsTouch reports whether the device class is driven by touch input
func IsTouch(d Device) bool {
	return d == Tablet || d == Mobile
}
