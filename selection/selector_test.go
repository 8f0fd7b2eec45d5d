package selection

import (
	"context"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"math"
	"roadview/geo"
	"roadview/roads"
	"roadview/streetview"
	"roadview/util"
	"testing"
)

type providerMock struct {
	mock.Mock
}

func (m *providerMock) Probe(ctx context.Context, query streetview.ImageQuery) (*streetview.ImageResult, error) {
	args := m.Called(ctx, query)
	result, _ := args.Get(0).(*streetview.ImageResult)
	return result, args.Error(1)
}

func at(location orb.Point) interface{} {
	return mock.MatchedBy(func(query streetview.ImageQuery) bool {
		return query.Location == location
	})
}

func found(location orb.Point) *streetview.ImageResult {
	return &streetview.ImageResult{Found: true, Status: "OK", Location: location, PanoID: "pano"}
}

func notFound() *streetview.ImageResult {
	return &streetview.ImageResult{Found: false, Status: "ZERO_RESULTS"}
}

func testNodes() roads.CoordinateIndex {
	return roads.CoordinateIndex{
		1: {-122.0, 45.0},
		2: {-122.0, 45.001},
		3: {-122.0, 45.002},
		4: {-122.0, 45.003},
	}
}

func testRoad(id osm.WayID, oneWay roads.OneWay, nodeIds ...osm.NodeID) *roads.Road {
	return &roads.Road{
		ID:      id,
		NodeIDs: nodeIds,
		Tags:    map[string]string{"highway": "residential"},
		OneWay:  oneWay,
	}
}

func TestRepresentativeIndex(t *testing.T) {
	util.AssertEqual(t, 0, RepresentativeIndex(2))
	util.AssertEqual(t, 1, RepresentativeIndex(3))
	util.AssertEqual(t, 1, RepresentativeIndex(4))
	util.AssertEqual(t, 2, RepresentativeIndex(5))
	util.AssertEqual(t, 2, RepresentativeIndex(6))
}

func TestRepresentativeIndex_alwaysHasNextNode(t *testing.T) {
	for length := 2; length <= 1000; length++ {
		index := RepresentativeIndex(length)
		util.AssertTrue(t, index >= 0)
		util.AssertTrue(t, index+1 < length)
	}
}

func TestSelector_Select_middleNodeOfOddRoad(t *testing.T) {
	// Arrange
	nodes := testNodes()
	provider := &providerMock{}
	provider.On("Probe", mock.Anything, at(nodes[2])).Return(found(nodes[2]), nil)
	selector := NewSelector(provider, nodes, DefaultConfig())

	// Act
	outcome, err := selector.Select(context.Background(), testRoad(7, roads.OneWayNone, 1, 2, 3))

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, Accepted, outcome.Status)
	util.AssertEqual(t, osm.WayID(7), outcome.RoadID)
	util.AssertEqual(t, 3, outcome.ResolvedNodes)
	util.AssertEqual(t, osm.NodeID(2), outcome.NodeID)
	util.AssertEqual(t, nodes[2], outcome.Location)
	util.AssertApprox(t, 0, outcome.Heading, 0.001)
	util.AssertApprox(t, 0, outcome.Distance, 0.001)
	util.AssertEqual(t, "7_2", outcome.ImageID)
	util.AssertEqual(t, "OK", outcome.ProviderStatus)

	util.AssertEqual(t, "640x640", outcome.Query.Size)
	util.AssertEqual(t, float64(10), outcome.Query.Radius)
	util.AssertEqual(t, float64(0), outcome.Query.Pitch)
	util.AssertEqual(t, outcome.Heading, outcome.Query.Heading)
	provider.AssertExpectations(t)
}

func TestSelector_Select_twoNodes(t *testing.T) {
	// Arrange
	nodes := testNodes()
	provider := &providerMock{}
	provider.On("Probe", mock.Anything, at(nodes[3])).Return(found(nodes[3]), nil)
	selector := NewSelector(provider, nodes, DefaultConfig())

	// Act
	outcome, err := selector.Select(context.Background(), testRoad(7, roads.OneWayNone, 3, 1))

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, Accepted, outcome.Status)
	util.AssertEqual(t, osm.NodeID(3), outcome.NodeID)
	util.AssertApprox(t, 180, outcome.Heading, 0.001)
}

func TestSelector_Select_reverseOneWay(t *testing.T) {
	// Arrange
	nodes := testNodes()
	provider := &providerMock{}
	provider.On("Probe", mock.Anything, at(nodes[2])).Return(found(nodes[2]), nil)
	provider.On("Probe", mock.Anything, at(nodes[3])).Return(found(nodes[3]), nil)
	selector := NewSelector(provider, nodes, DefaultConfig())

	// Act
	forward, err := selector.Select(context.Background(), testRoad(7, roads.OneWayForward, 1, 2, 3, 4))
	util.AssertNil(t, err)
	reverse, err := selector.Select(context.Background(), testRoad(7, roads.OneWayReverse, 1, 2, 3, 4))
	util.AssertNil(t, err)

	// Assert
	util.AssertEqual(t, osm.NodeID(2), forward.NodeID)
	util.AssertApprox(t, 0, forward.Heading, 0.001)
	util.AssertEqual(t, osm.NodeID(3), reverse.NodeID)
	util.AssertApprox(t, 180, reverse.Heading, 0.001)
	util.AssertEqual(t, "7_3", reverse.ImageID)
}

func TestSelector_Select_insufficientNodes(t *testing.T) {
	// Arrange
	provider := &providerMock{}
	selector := NewSelector(provider, testNodes(), DefaultConfig())

	// Act
	outcome, err := selector.Select(context.Background(), testRoad(7, roads.OneWayNone, 1, 98, 99))

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, RejectedInsufficientNodes, outcome.Status)
	util.AssertEqual(t, 1, outcome.ResolvedNodes)
	util.AssertEqual(t, "", outcome.ImageID)
	provider.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}

func TestSelector_Select_unresolvableNodesAreSkipped(t *testing.T) {
	// Arrange
	nodes := testNodes()
	provider := &providerMock{}
	provider.On("Probe", mock.Anything, at(nodes[2])).Return(found(nodes[2]), nil)
	selector := NewSelector(provider, nodes, DefaultConfig())

	// Act
	outcome, err := selector.Select(context.Background(), testRoad(7, roads.OneWayNone, 1, 50, 2, 51, 3))

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, 3, outcome.ResolvedNodes)
	util.AssertEqual(t, osm.NodeID(2), outcome.NodeID)
}

func TestSelector_Select_noImageAvailable(t *testing.T) {
	// Arrange
	nodes := testNodes()
	provider := &providerMock{}
	provider.On("Probe", mock.Anything, at(nodes[2])).Return(notFound(), nil)
	selector := NewSelector(provider, nodes, DefaultConfig())

	// Act
	outcome, err := selector.Select(context.Background(), testRoad(7, roads.OneWayNone, 1, 2, 3))

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, RejectedNoImageAvailable, outcome.Status)
	util.AssertEqual(t, "ZERO_RESULTS", outcome.ProviderStatus)
	util.AssertEqual(t, osm.NodeID(2), outcome.NodeID)
	util.AssertEqual(t, "", outcome.ImageID)
}

func TestSelector_Select_tooFarFromRoad(t *testing.T) {
	// Arrange
	nodes := testNodes()
	// Roughly 50m north of node 2
	imageLocation := orb.Point{-122.0, 45.001 + 50.0/111132.0}
	provider := &providerMock{}
	provider.On("Probe", mock.Anything, at(nodes[2])).Return(found(imageLocation), nil)
	selector := NewSelector(provider, nodes, DefaultConfig())

	// Act
	outcome, err := selector.Select(context.Background(), testRoad(7, roads.OneWayNone, 1, 2, 3))

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, RejectedTooFarFromRoad, outcome.Status)
	util.AssertApprox(t, 50, outcome.Distance, 0.5)
	util.AssertEqual(t, imageLocation, outcome.ImageLocation)
	util.AssertEqual(t, "", outcome.ImageID)
}

func TestSelector_Select_thresholdIsConfigurable(t *testing.T) {
	// Arrange
	nodes := testNodes()
	imageLocation := orb.Point{-122.0, 45.001 + 50.0/111132.0}
	provider := &providerMock{}
	provider.On("Probe", mock.Anything, at(nodes[2])).Return(found(imageLocation), nil)
	config := DefaultConfig()
	config.MaxDistance = 60
	selector := NewSelector(provider, nodes, config)

	// Act
	outcome, err := selector.Select(context.Background(), testRoad(7, roads.OneWayNone, 1, 2, 3))

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, Accepted, outcome.Status)
	util.AssertApprox(t, 50, outcome.Distance, 0.5)
}

func TestSelector_Select_providerError(t *testing.T) {
	// Arrange
	nodes := testNodes()
	provider := &providerMock{}
	provider.On("Probe", mock.Anything, mock.Anything).Return(nil, &streetview.ProviderError{Operation: "probe", StatusCode: 500})
	selector := NewSelector(provider, nodes, DefaultConfig())

	// Act
	outcome, err := selector.Select(context.Background(), testRoad(7, roads.OneWayNone, 1, 2, 3))

	// Assert
	util.AssertNil(t, outcome)
	var providerError *streetview.ProviderError
	util.AssertTrue(t, errors.As(err, &providerError))
	util.AssertEqual(t, 500, providerError.StatusCode)
}

func TestSelector_Select_geometryError(t *testing.T) {
	// Arrange
	nodes := testNodes()
	nodes[5] = orb.Point{-122.0, math.NaN()}
	provider := &providerMock{}
	selector := NewSelector(provider, nodes, DefaultConfig())

	// Act
	outcome, err := selector.Select(context.Background(), testRoad(7, roads.OneWayNone, 5, 1))

	// Assert
	util.AssertNil(t, outcome)
	var geometryError *geo.GeometryError
	util.AssertTrue(t, errors.As(err, &geometryError))
	provider.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}

func TestStatus_String(t *testing.T) {
	util.AssertEqual(t, "undecided", Undecided.String())
	util.AssertEqual(t, "accepted", Accepted.String())
	util.AssertEqual(t, "insufficient-nodes", RejectedInsufficientNodes.String())
	util.AssertEqual(t, "no-image-available", RejectedNoImageAvailable.String())
	util.AssertEqual(t, "too-far-from-road", RejectedTooFarFromRoad.String())
}

func TestStats(t *testing.T) {
	stats := Stats{}
	stats.Add(&Outcome{Status: Accepted})
	stats.Add(&Outcome{Status: Accepted})
	stats.Add(&Outcome{Status: RejectedNoImageAvailable})
	stats.Add(&Outcome{Status: RejectedTooFarFromRoad})
	stats.Add(&Outcome{Status: RejectedInsufficientNodes})
	stats.Errors = 1

	util.AssertEqual(t, 2, stats.Accepted)
	util.AssertEqual(t, 3, stats.Rejected())
	util.AssertEqual(t, 6, stats.Total())
}

func TestStats_undecidedOutcomeIsNotCounted(t *testing.T) {
	outcome := &Outcome{}
	stats := Stats{}
	stats.Add(outcome)

	util.AssertFalse(t, outcome.IsAccepted())
	util.AssertEqual(t, 0, stats.Accepted)
	util.AssertEqual(t, 0, stats.Total())
}

func TestStatus_UnmarshalText(t *testing.T) {
	var status Status
	util.AssertNil(t, status.UnmarshalText([]byte("too-far-from-road")))
	util.AssertEqual(t, RejectedTooFarFromRoad, status)

	util.AssertNotNil(t, status.UnmarshalText([]byte("foo")))
	util.AssertNotNil(t, status.UnmarshalText([]byte("undecided")))
}
