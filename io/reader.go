package io

import (
	"context"
	"encoding/json"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"os"
	"strings"
	"time"
)

type OsmDataHandler interface {
	Name() string
	Init() error
	HandleNode(node *osm.Node) error
	HandleWay(way *osm.Way) error
	HandleRelation(relation *osm.Relation) error
	Done() error
}

// OsmReader streams the elements of an .osm, .pbf or Overpass .json file into data handlers.
type OsmReader struct {
	firstWayHasBeenProcessed      bool
	firstRelationHasBeenProcessed bool
}

func NewOsmReader() *OsmReader {
	return &OsmReader{}
}

func IsSupportedInputFile(filename string) bool {
	return strings.HasSuffix(filename, ".osm") || strings.HasSuffix(filename, ".pbf") || strings.HasSuffix(filename, ".json")
}

func (r *OsmReader) Read(filename string, handlers ...OsmDataHandler) error {
	if !IsSupportedInputFile(filename) {
		return errors.Errorf("Input file %s must be an .osm, .pbf or .json file", filename)
	}

	r.firstWayHasBeenProcessed = false
	r.firstRelationHasBeenProcessed = false

	sigolo.Infof("Start processing OSM data file %s", filename)
	readStartTime := time.Now()

	for _, handler := range handlers {
		err := handler.Init()
		if err != nil {
			return errors.Wrapf(err, "Initializing OSM data handler '%s' failed", handler.Name())
		}
	}

	var err error
	if strings.HasSuffix(filename, ".json") {
		err = r.readJson(filename, handlers)
	} else {
		err = r.readScanner(filename, handlers)
	}
	if err != nil {
		return err
	}

	for _, handler := range handlers {
		err = handler.Done()
		if err != nil {
			return errors.Wrapf(err, "Calling done function on handler '%s' failed", handler.Name())
		}
	}

	sigolo.Infof("Done processing OSM data in %s", time.Since(readStartTime))
	return nil
}

func (r *OsmReader) readScanner(filename string, handlers []OsmDataHandler) error {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to open OSM input file %s", filename)
	}
	defer f.Close()

	var scanner osm.Scanner
	if strings.HasSuffix(filename, ".osm") {
		scanner = osmxml.New(context.Background(), f)
	} else {
		scanner = osmpbf.New(context.Background(), f, 1)
	}

	sigolo.Debug("Start processing nodes (1/3)")
	for scanner.Scan() {
		err = r.handleObject(scanner.Object(), handlers)
		if err != nil {
			scanner.Close()
			return err
		}
	}

	err = scanner.Err()
	if err != nil {
		scanner.Close()
		return errors.Wrapf(err, "Error while scanning OSM input file %s", filename)
	}

	err = scanner.Close()
	if err != nil {
		return errors.Wrapf(err, "Unable to close OSM scanner")
	}

	return nil
}

// readJson reads a file in the Overpass JSON format, i.e. an object with an "elements" array.
func (r *OsmReader) readJson(filename string, handlers []OsmDataHandler) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to read OSM input file %s", filename)
	}

	osmData := &osm.OSM{}
	err = json.Unmarshal(data, osmData)
	if err != nil {
		return errors.Wrapf(err, "Unable to parse Overpass JSON from file %s", filename)
	}

	sigolo.Debugf("Read %d nodes, %d ways and %d relations", len(osmData.Nodes), len(osmData.Ways), len(osmData.Relations))

	nodesWithoutLocation, err := findNodesWithoutLocation(data)
	if err != nil {
		return errors.Wrapf(err, "Unable to parse Overpass JSON from file %s", filename)
	}

	for _, object := range osmData.Objects() {
		if node, ok := object.(*osm.Node); ok && nodesWithoutLocation[node.ID] {
			sigolo.Warnf("Node %d has no coordinates and is skipped", node.ID)
			continue
		}

		err = r.handleObject(object, handlers)
		if err != nil {
			return err
		}
	}

	return nil
}

// findNodesWithoutLocation returns the IDs of all nodes lacking "lat" or "lon". Such nodes are decoded as (0, 0) by
// the osm package, which is a valid location.
func findNodesWithoutLocation(data []byte) (map[osm.NodeID]bool, error) {
	var elements struct {
		Elements []struct {
			Type string   `json:"type"`
			ID   int64    `json:"id"`
			Lat  *float64 `json:"lat"`
			Lon  *float64 `json:"lon"`
		} `json:"elements"`
	}
	err := json.Unmarshal(data, &elements)
	if err != nil {
		return nil, err
	}

	result := map[osm.NodeID]bool{}
	for _, element := range elements.Elements {
		if element.Type == string(osm.TypeNode) && (element.Lat == nil || element.Lon == nil) {
			result[osm.NodeID(element.ID)] = true
		}
	}
	return result, nil
}

func (r *OsmReader) handleObject(object osm.Object, handlers []OsmDataHandler) error {
	var err error

	switch osmObj := object.(type) {
	case *osm.Node:
		for _, handler := range handlers {
			err = handler.HandleNode(osmObj)
			if err != nil {
				return errors.Wrapf(err, "Handling node %d using handler '%s' failed", osmObj.ID, handler.Name())
			}
		}
	case *osm.Way:
		if !r.firstWayHasBeenProcessed {
			sigolo.Debug("Start processing ways (2/3)")
			r.firstWayHasBeenProcessed = true
		}

		for _, handler := range handlers {
			err = handler.HandleWay(osmObj)
			if err != nil {
				return errors.Wrapf(err, "Handling way %d using handler '%s' failed", osmObj.ID, handler.Name())
			}
		}
	case *osm.Relation:
		if !r.firstRelationHasBeenProcessed {
			sigolo.Debug("Start processing relations (3/3)")
			r.firstRelationHasBeenProcessed = true
		}

		for _, handler := range handlers {
			err = handler.HandleRelation(osmObj)
			if err != nil {
				return errors.Wrapf(err, "Handling relation %d using handler '%s' failed", osmObj.ID, handler.Name())
			}
		}
	}

	return nil
}

// WriteOsmJson stores raw OSM data in the Overpass JSON format.
func WriteOsmJson(osmData *osm.OSM, filename string) error {
	data, err := json.Marshal(osmData)
	if err != nil {
		return errors.Wrap(err, "Unable to serialize OSM data")
	}

	err = os.WriteFile(filename, data, 0644)
	if err != nil {
		return errors.Wrapf(err, "Unable to write OSM data to %s", filename)
	}

	sigolo.Infof("%s saved", filename)
	return nil
}
