package streetview

import (
	"fmt"
	"github.com/paulmach/orb"
)

// ImageQuery describes one directional image at a location. The same query is used to probe for metadata and to
// fetch the image itself.
type ImageQuery struct {
	Location orb.Point
	Heading  float64 // Degrees within [0, 360)
	Pitch    float64
	Size     string  // "<width>x<height>" in pixels
	Radius   float64 // Meters around Location in which the provider may search for the nearest panorama
}

// ImageResult is the answer to a probe. Location, PanoID and Date are only set when an image has been found.
type ImageResult struct {
	Found    bool
	Status   string
	Location orb.Point
	PanoID   string
	Date     string
}

// ProviderError is a transport or service failure of the imagery provider. It's not retried internally.
type ProviderError struct {
	Operation  string // "probe" or "fetch"
	StatusCode int    // HTTP status code, 0 when no response was received
	Status     string // Status reported by the provider, if any
	Err        error
}

func (e *ProviderError) Error() string {
	message := fmt.Sprintf("imagery provider %s failed", e.Operation)
	if e.StatusCode != 0 {
		message += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Status != "" {
		message += fmt.Sprintf(" with status %s", e.Status)
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
