package selection

import (
	"fmt"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"roadview/streetview"
)

type Status int

const (
	// Undecided is the zero value, set only while a road hasn't been decided on.
	Undecided Status = iota
	Accepted
	RejectedInsufficientNodes
	RejectedNoImageAvailable
	RejectedTooFarFromRoad
)

func (s Status) String() string {
	switch s {
	case Undecided:
		return "undecided"
	case Accepted:
		return "accepted"
	case RejectedInsufficientNodes:
		return "insufficient-nodes"
	case RejectedNoImageAvailable:
		return "no-image-available"
	case RejectedTooFarFromRoad:
		return "too-far-from-road"
	}
	return fmt.Sprintf("[!UNKNOWN Status %d]", s)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for candidate := Accepted; candidate <= RejectedTooFarFromRoad; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return errors.Errorf("Unknown status '%s'", string(text))
}

// Outcome is the decision for one road. Which fields are set depends on the status:
//   - RejectedInsufficientNodes: ResolvedNodes
//   - RejectedNoImageAvailable: node, heading, query and ProviderStatus
//   - RejectedTooFarFromRoad: additionally ImageLocation and Distance
//   - Accepted: additionally ImageID
type Outcome struct {
	Status         Status                `json:"status"`
	RoadID         osm.WayID             `json:"roadId"`
	ResolvedNodes  int                   `json:"resolvedNodes"`
	NodeID         osm.NodeID            `json:"nodeId,omitempty"`
	Location       orb.Point             `json:"location"`
	Heading        float64               `json:"heading"`
	ProviderStatus string                `json:"providerStatus,omitempty"`
	ImageLocation  orb.Point             `json:"imageLocation"`
	Distance       float64               `json:"distance"`
	ImageID        string                `json:"imageId,omitempty"`
	Query          streetview.ImageQuery `json:"-"`
}

func (o *Outcome) IsAccepted() bool {
	return o.Status == Accepted
}

func (o *Outcome) String() string {
	switch o.Status {
	case Accepted:
		return fmt.Sprintf("road %d: accepted image %s (heading %.1f°, distance %.1fm)", o.RoadID, o.ImageID, o.Heading, o.Distance)
	case RejectedInsufficientNodes:
		return fmt.Sprintf("road %d: only %d resolvable nodes", o.RoadID, o.ResolvedNodes)
	case RejectedNoImageAvailable:
		return fmt.Sprintf("road %d: no image at node %d (status %s)", o.RoadID, o.NodeID, o.ProviderStatus)
	case RejectedTooFarFromRoad:
		return fmt.Sprintf("road %d: image %.1fm away from node %d", o.RoadID, o.Distance, o.NodeID)
	}
	return fmt.Sprintf("road %d: %s", o.RoadID, o.Status)
}

// Stats counts outcomes per status.
type Stats struct {
	Accepted          int `json:"accepted"`
	InsufficientNodes int `json:"insufficientNodes"`
	NoImageAvailable  int `json:"noImageAvailable"`
	TooFarFromRoad    int `json:"tooFarFromRoad"`
	Errors            int `json:"errors"`
	Downloaded        int `json:"downloaded"`
}

func (s *Stats) Add(outcome *Outcome) {
	switch outcome.Status {
	case Accepted:
		s.Accepted++
	case RejectedInsufficientNodes:
		s.InsufficientNodes++
	case RejectedNoImageAvailable:
		s.NoImageAvailable++
	case RejectedTooFarFromRoad:
		s.TooFarFromRoad++
	}
}

func (s Stats) Rejected() int {
	return s.InsufficientNodes + s.NoImageAvailable + s.TooFarFromRoad
}

func (s Stats) Total() int {
	return s.Accepted + s.Rejected() + s.Errors
}
