package roads

import (
	"fmt"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"sort"
	"strings"
)

// OneWay is the traversal direction constraint of a road as given by its "oneway" tag.
type OneWay int

const (
	OneWayNone OneWay = iota
	OneWayForward
	OneWayReverse
)

func (o OneWay) String() string {
	switch o {
	case OneWayNone:
		return "none"
	case OneWayForward:
		return "forward"
	case OneWayReverse:
		return "reverse"
	}
	return fmt.Sprintf("[!UNKNOWN OneWay %d]", o)
}

// ParseOneWay interprets the value of a "oneway" tag. Unknown and empty values mean that there's no constraint.
func ParseOneWay(value string) OneWay {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "1":
		return OneWayForward
	case "-1", "reverse":
		return OneWayReverse
	}
	return OneWayNone
}

// MapNode is a single resolved node of a road.
type MapNode struct {
	ID       osm.NodeID
	Location orb.Point
}

// Road is a way of the road network. It's created once from the raw OSM way and must be treated as read-only.
type Road struct {
	ID      osm.WayID
	NodeIDs []osm.NodeID
	Tags    map[string]string
	OneWay  OneWay
}

func NewRoad(way *osm.Way) *Road {
	return &Road{
		ID:      way.ID,
		NodeIDs: way.Nodes.NodeIDs(),
		Tags:    way.Tags.Map(),
		OneWay:  ParseOneWay(way.Tags.Find("oneway")),
	}
}

// Tag returns the value of the given key or "" when the road doesn't have this tag.
func (r *Road) Tag(key string) string {
	if r.Tags == nil {
		return ""
	}
	return r.Tags[key]
}

// CoordinateIndex maps node IDs to their location.
type CoordinateIndex map[osm.NodeID]orb.Point

func (c CoordinateIndex) Get(id osm.NodeID) (orb.Point, bool) {
	point, ok := c[id]
	return point, ok
}

// Resolve returns the nodes of the given IDs which exist in this index. The order of the IDs is preserved and unknown
// IDs are skipped.
func (c CoordinateIndex) Resolve(ids []osm.NodeID) []MapNode {
	nodes := make([]MapNode, 0, len(ids))
	for _, id := range ids {
		if point, ok := c[id]; ok {
			nodes = append(nodes, MapNode{ID: id, Location: point})
		}
	}
	return nodes
}

// Network is the filtered road network of one region.
type Network struct {
	Roads map[osm.WayID]*Road
	Nodes CoordinateIndex
}

func NewNetwork() *Network {
	return &Network{
		Roads: map[osm.WayID]*Road{},
		Nodes: CoordinateIndex{},
	}
}

// RoadIDs returns the IDs of all roads in ascending order.
func (n *Network) RoadIDs() []osm.WayID {
	ids := make([]osm.WayID, 0, len(n.Roads))
	for id := range n.Roads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	return ids
}

// SortedRoads returns all roads ordered by their ID.
func (n *Network) SortedRoads() []*Road {
	var result []*Road
	for _, id := range n.RoadIDs() {
		result = append(result, n.Roads[id])
	}
	return result
}
