package selection

import (
	"context"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"roadview/geo"
	"roadview/roads"
	"roadview/streetview"
	"slices"
)

// Provider answers whether imagery exists for a query. Implemented by *streetview.Client.
type Provider interface {
	Probe(ctx context.Context, query streetview.ImageQuery) (*streetview.ImageResult, error)
}

type Config struct {
	MaxDistance float64 // Meters between the queried node and the reported image location above which an image isn't trusted
	Radius      float64 // Meters the provider may search around the queried node
	Size        string
	Pitch       float64
}

func DefaultConfig() Config {
	return Config{
		MaxDistance: 10,
		Radius:      10,
		Size:        "640x640",
		Pitch:       0,
	}
}

// Selector decides for single roads which image to take. It has no mutable state and can be used concurrently.
type Selector struct {
	provider Provider
	nodes    roads.CoordinateIndex
	config   Config
}

func NewSelector(provider Provider, nodes roads.CoordinateIndex, config Config) *Selector {
	return &Selector{
		provider: provider,
		nodes:    nodes,
		config:   config,
	}
}

func (s *Selector) Config() Config {
	return s.config
}

// RepresentativeIndex returns the index of the node the image is taken at. It's the middle node for odd lengths and
// the last node of the first half for even lengths, so there's always a next node to compute the heading with.
func RepresentativeIndex(length int) int {
	if length%2 == 0 {
		return length/2 - 1
	}
	return length / 2
}

// Select runs the selection for one road. Rejections are returned as outcome, errors only occur for invalid
// coordinates (*geo.GeometryError) or a failing provider (*streetview.ProviderError).
func (s *Selector) Select(ctx context.Context, road *roads.Road) (*Outcome, error) {
	nodes := s.nodes.Resolve(road.NodeIDs)

	outcome := &Outcome{
		RoadID:        road.ID,
		ResolvedNodes: len(nodes),
	}

	if len(nodes) < 2 {
		sigolo.Debugf("Reject road %d: only %d of %d nodes resolvable", road.ID, len(nodes), len(road.NodeIDs))
		outcome.Status = RejectedInsufficientNodes
		return outcome, nil
	}

	if road.OneWay == roads.OneWayReverse {
		slices.Reverse(nodes)
	}

	index := RepresentativeIndex(len(nodes))
	nodeA := nodes[index]
	nodeB := nodes[index+1]

	heading, err := geo.Bearing(nodeA.Location, nodeB.Location)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to compute heading of road %d from node %d to %d", road.ID, nodeA.ID, nodeB.ID)
	}

	outcome.NodeID = nodeA.ID
	outcome.Location = nodeA.Location
	outcome.Heading = heading
	outcome.Query = streetview.ImageQuery{
		Location: nodeA.Location,
		Heading:  heading,
		Pitch:    s.config.Pitch,
		Size:     s.config.Size,
		Radius:   s.config.Radius,
	}

	sigolo.Tracef("Probe road %d at node %d (index %d of %d) with heading %f", road.ID, nodeA.ID, index, len(nodes), heading)

	result, err := s.provider.Probe(ctx, outcome.Query)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to probe image for road %d at node %d", road.ID, nodeA.ID)
	}

	outcome.ProviderStatus = result.Status
	if !result.Found {
		sigolo.Debugf("Reject road %d: no image at node %d (status %s)", road.ID, nodeA.ID, result.Status)
		outcome.Status = RejectedNoImageAvailable
		return outcome, nil
	}

	distance, err := geo.Distance(nodeA.Location, result.Location)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to compute distance of image to node %d of road %d", nodeA.ID, road.ID)
	}

	outcome.ImageLocation = result.Location
	outcome.Distance = distance

	if distance > s.config.MaxDistance {
		sigolo.Warnf("Reject road %d: image is %.2fm away from node %d (%v), maximum is %.2fm", road.ID, distance, nodeA.ID, nodeA.Location, s.config.MaxDistance)
		outcome.Status = RejectedTooFarFromRoad
		return outcome, nil
	}

	outcome.Status = Accepted
	outcome.ImageID = streetview.ImageID(road.ID, nodeA.ID)
	return outcome, nil
}
