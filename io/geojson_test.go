package io

import (
	"bytes"
	"encoding/json"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"roadview/selection"
	"roadview/util"
	"testing"
)

func TestWriteOutcomesAsGeoJson(t *testing.T) {
	// Arrange
	outcomes := []*selection.Outcome{
		{Status: selection.RejectedInsufficientNodes, RoadID: 1, ResolvedNodes: 1},
		{Status: selection.Accepted, RoadID: 2, NodeID: 20, Location: orb.Point{-122.0, 45.0}, Heading: 90, ProviderStatus: "OK", ImageLocation: orb.Point{-122.0, 45.0}, Distance: 0, ImageID: "2_20"},
		{Status: selection.RejectedNoImageAvailable, RoadID: 3, NodeID: 30, Location: orb.Point{-121.0, 46.0}, Heading: 180, ProviderStatus: "ZERO_RESULTS"},
	}
	buffer := &bytes.Buffer{}

	// Act
	err := WriteOutcomesAsGeoJson(outcomes, buffer)

	// Assert
	util.AssertNil(t, err)

	var collection struct {
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	util.AssertNil(t, json.Unmarshal(buffer.Bytes(), &collection))
	util.AssertEqual(t, 2, len(collection.Features))

	accepted := collection.Features[0]
	util.AssertEqual(t, "Point", accepted.Geometry.Type)
	util.AssertEqual(t, []float64{-122.0, 45.0}, accepted.Geometry.Coordinates)
	util.AssertEqual(t, float64(2), accepted.Properties["osm_id"])
	util.AssertEqual(t, "accepted", accepted.Properties["status"])
	util.AssertEqual(t, "2_20", accepted.Properties["image_id"])
	util.AssertEqual(t, float64(0), accepted.Properties["distance"])

	noImage := collection.Features[1]
	util.AssertEqual(t, "no-image-available", noImage.Properties["status"])
	util.AssertEqual(t, "ZERO_RESULTS", noImage.Properties["provider_status"])
	util.AssertNil(t, noImage.Properties["distance"])
	util.AssertNil(t, noImage.Properties["image_id"])
}

func TestWriteNetworkAsGeoJson(t *testing.T) {
	// Arrange
	network := testNetwork()
	network.Roads[11].NodeIDs = []osm.NodeID{3, 99}
	buffer := &bytes.Buffer{}

	// Act
	err := WriteNetworkAsGeoJson(network, buffer)

	// Assert
	util.AssertNil(t, err)
	util.AssertContains(t, `"type":"LineString"`, buffer.String())
	util.AssertContains(t, `"osm_id":10`, buffer.String())
	util.AssertContains(t, `"highway":"residential"`, buffer.String())
	util.AssertFalse(t, bytes.Contains(buffer.Bytes(), []byte(`"osm_id":11`)))
}
