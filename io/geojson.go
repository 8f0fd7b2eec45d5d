package io

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"io"
	"os"
	"roadview/roads"
	"roadview/selection"
	"time"
)

func WriteOutcomesAsGeoJsonFile(outcomes []*selection.Outcome, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to create GeoJSON file %s", filename)
	}

	defer func() {
		err = file.Close()
		sigolo.FatalCheck(errors.Wrapf(err, "Unable to close file handle for GeoJSON file %s", file.Name()))
	}()

	return WriteOutcomesAsGeoJson(outcomes, file)
}

// WriteOutcomesAsGeoJson writes one point feature per outcome at the representative node. Outcomes without such node
// (too few resolvable nodes) have no location and are left out.
func WriteOutcomesAsGeoJson(outcomes []*selection.Outcome, writer io.Writer) error {
	sigolo.Info("Write selection outcomes to GeoJSON")
	writeStartTime := time.Now()

	featureCollection := geojson.NewFeatureCollection()
	for _, outcome := range outcomes {
		if outcome.Status == selection.RejectedInsufficientNodes {
			continue
		}

		feature := geojson.NewFeature(outcome.Location)
		feature.Properties["osm_id"] = int64(outcome.RoadID)
		feature.Properties["node_id"] = int64(outcome.NodeID)
		feature.Properties["status"] = outcome.Status.String()
		feature.Properties["heading"] = outcome.Heading
		feature.Properties["provider_status"] = outcome.ProviderStatus

		if outcome.Status == selection.Accepted || outcome.Status == selection.RejectedTooFarFromRoad {
			feature.Properties["distance"] = outcome.Distance
			feature.Properties["image_lon"] = outcome.ImageLocation.Lon()
			feature.Properties["image_lat"] = outcome.ImageLocation.Lat()
		}
		if outcome.ImageID != "" {
			feature.Properties["image_id"] = outcome.ImageID
		}

		featureCollection.Features = append(featureCollection.Features, feature)
	}

	err := writeFeatureCollection(featureCollection, writer)
	if err != nil {
		return err
	}

	sigolo.Infof("Finished writing %d features in %s", len(featureCollection.Features), time.Since(writeStartTime))
	return nil
}

// WriteNetworkAsGeoJson writes each road as line string with its tags as properties. Unresolvable nodes are skipped
// and roads with less than two resolvable nodes are left out.
func WriteNetworkAsGeoJson(network *roads.Network, writer io.Writer) error {
	featureCollection := geojson.NewFeatureCollection()
	for _, road := range network.SortedRoads() {
		nodes := network.Nodes.Resolve(road.NodeIDs)
		if len(nodes) < 2 {
			continue
		}

		lineString := make(orb.LineString, len(nodes))
		for i, node := range nodes {
			lineString[i] = node.Location
		}

		feature := geojson.NewFeature(lineString)
		feature.Properties["osm_id"] = int64(road.ID)
		for key, value := range road.Tags {
			feature.Properties[key] = value
		}

		featureCollection.Features = append(featureCollection.Features, feature)
	}

	return writeFeatureCollection(featureCollection, writer)
}

func writeFeatureCollection(featureCollection *geojson.FeatureCollection, writer io.Writer) error {
	geojsonBytes, err := featureCollection.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Unable to marshal GeoJSON")
	}

	_, err = writer.Write(geojsonBytes)
	return errors.Wrap(err, "Unable to write GeoJSON")
}
