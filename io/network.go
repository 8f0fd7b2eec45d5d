package io

import (
	"encoding/json"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"io"
	"os"
	"roadview/roads"
	"strconv"
)

// wayJson is the persisted form of a road, keyed by its ID in the ways file.
type wayJson struct {
	ID    int64             `json:"id"`
	Type  string            `json:"type"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

// WriteWays writes the roads as JSON object from way ID to way.
func WriteWays(roadMap map[osm.WayID]*roads.Road, writer io.Writer) error {
	ways := make(map[string]wayJson, len(roadMap))
	for id, road := range roadMap {
		nodes := make([]int64, len(road.NodeIDs))
		for i, nodeId := range road.NodeIDs {
			nodes[i] = int64(nodeId)
		}

		ways[strconv.FormatInt(int64(id), 10)] = wayJson{
			ID:    int64(id),
			Type:  "way",
			Nodes: nodes,
			Tags:  road.Tags,
		}
	}

	return json.NewEncoder(writer).Encode(ways)
}

// ReadWays reads roads written by WriteWays. The key of each entry takes precedence over a missing "id" field.
func ReadWays(reader io.Reader) (map[osm.WayID]*roads.Road, error) {
	var ways map[string]wayJson
	err := json.NewDecoder(reader).Decode(&ways)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse ways")
	}

	result := make(map[osm.WayID]*roads.Road, len(ways))
	for key, way := range ways {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Way key '%s' is not a valid ID", key)
		}

		nodeIds := make([]osm.NodeID, len(way.Nodes))
		for i, nodeId := range way.Nodes {
			nodeIds[i] = osm.NodeID(nodeId)
		}

		tags := way.Tags
		if tags == nil {
			tags = map[string]string{}
		}

		result[osm.WayID(id)] = &roads.Road{
			ID:      osm.WayID(id),
			NodeIDs: nodeIds,
			Tags:    tags,
			OneWay:  roads.ParseOneWay(tags["oneway"]),
		}
	}

	return result, nil
}

// WriteNodes writes the coordinate index as JSON object from node ID to [lat, lon].
func WriteNodes(nodes roads.CoordinateIndex, writer io.Writer) error {
	result := make(map[string][2]float64, len(nodes))
	for id, point := range nodes {
		result[strconv.FormatInt(int64(id), 10)] = [2]float64{point.Lat(), point.Lon()}
	}

	return json.NewEncoder(writer).Encode(result)
}

// ReadNodes reads the coordinate index. Nodes stored without coordinates, i.e. as [null, null], are left out.
func ReadNodes(reader io.Reader) (roads.CoordinateIndex, error) {
	var nodes map[string][]*float64
	err := json.NewDecoder(reader).Decode(&nodes)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse nodes")
	}

	result := make(roads.CoordinateIndex, len(nodes))
	for key, latLon := range nodes {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Node key '%s' is not a valid ID", key)
		}
		if len(latLon) != 2 {
			return nil, errors.Errorf("Node %d must have exactly two coordinates but has %d", id, len(latLon))
		}

		if latLon[0] == nil || latLon[1] == nil {
			sigolo.Warnf("Node %d has no coordinates and is left out", id)
			continue
		}

		result[osm.NodeID(id)] = orb.Point{*latLon[1], *latLon[0]}
	}

	return result, nil
}

// WriteNetworkFiles stores the roads and nodes of the network in two separate files.
func WriteNetworkFiles(network *roads.Network, waysFile string, nodesFile string) error {
	err := writeFile(waysFile, func(writer io.Writer) error {
		return WriteWays(network.Roads, writer)
	})
	if err != nil {
		return err
	}

	return writeFile(nodesFile, func(writer io.Writer) error {
		return WriteNodes(network.Nodes, writer)
	})
}

// ReadNetworkFiles reads a network stored by WriteNetworkFiles.
func ReadNetworkFiles(waysFile string, nodesFile string) (*roads.Network, error) {
	network := roads.NewNetwork()

	err := readFile(waysFile, func(reader io.Reader) error {
		var err error
		network.Roads, err = ReadWays(reader)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = readFile(nodesFile, func(reader io.Reader) error {
		var err error
		network.Nodes, err = ReadNodes(reader)
		return err
	})
	if err != nil {
		return nil, err
	}

	sigolo.Debugf("Read %d roads and %d nodes", len(network.Roads), len(network.Nodes))
	return network, nil
}

// ReadWaysFile reads only the roads of a stored network, which is all that label generation needs.
func ReadWaysFile(waysFile string) (map[osm.WayID]*roads.Road, error) {
	var result map[osm.WayID]*roads.Road
	err := readFile(waysFile, func(reader io.Reader) error {
		var err error
		result, err = ReadWays(reader)
		return err
	})
	return result, err
}

func writeFile(filename string, write func(writer io.Writer) error) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to create file %s", filename)
	}

	err = write(file)
	if err != nil {
		file.Close()
		return errors.Wrapf(err, "Unable to write file %s", filename)
	}

	err = file.Close()
	if err != nil {
		return errors.Wrapf(err, "Unable to close file handle for %s", filename)
	}

	sigolo.Infof("%s saved", filename)
	return nil
}

func readFile(filename string, read func(reader io.Reader) error) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "Unable to open file %s", filename)
	}
	defer file.Close()

	return errors.Wrapf(read(file), "Unable to read file %s", filename)
}
