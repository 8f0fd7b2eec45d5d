package roads

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"time"
)

// DefaultHighwayTypes are the "highway" values of roads we're interested in.
var DefaultHighwayTypes = []string{"primary", "secondary", "tertiary", "residential", "motorway"}

const DefaultMinNodes = 2

// Filter keeps all ways with an allowed "highway" value and more than minNodes node references. Only nodes referenced
// by such a way are put into the coordinate index. The result only depends on the content of the given objects, not
// on their order.
func Filter(objects osm.Objects, allowedHighwayTypes []string, minNodes int) *Network {
	allowed := map[string]bool{}
	for _, highwayType := range allowedHighwayTypes {
		allowed[highwayType] = true
	}

	network := NewNetwork()
	requiredNodes := map[osm.NodeID]bool{}

	for _, object := range objects {
		way, ok := object.(*osm.Way)
		if !ok || way == nil {
			continue
		}

		highwayType := way.Tags.Find("highway")
		if !allowed[highwayType] || len(way.Nodes) <= minNodes {
			sigolo.Tracef("Skip way %d (highway=%q, nodes=%d)", way.ID, highwayType, len(way.Nodes))
			continue
		}

		road := NewRoad(way)
		network.Roads[road.ID] = road
		for _, nodeId := range road.NodeIDs {
			requiredNodes[nodeId] = true
		}
	}

	for _, object := range objects {
		node, ok := object.(*osm.Node)
		if !ok || node == nil {
			continue
		}

		if requiredNodes[node.ID] {
			network.Nodes[node.ID] = orb.Point{node.Lon, node.Lat}
		}
	}

	return network
}

// Collector is an OSM data handler which gathers all nodes and ways of an input file and filters them into a road
// network once the input has been read completely.
type Collector struct {
	AllowedHighwayTypes []string
	MinNodes            int

	objects osm.Objects
	network *Network
}

func NewCollector(allowedHighwayTypes []string, minNodes int) *Collector {
	return &Collector{
		AllowedHighwayTypes: allowedHighwayTypes,
		MinNodes:            minNodes,
	}
}

func (c *Collector) Name() string {
	return "RoadCollector"
}

func (c *Collector) Init() error {
	c.objects = osm.Objects{}
	c.network = nil
	return nil
}

func (c *Collector) HandleNode(node *osm.Node) error {
	c.objects = append(c.objects, node)
	return nil
}

func (c *Collector) HandleWay(way *osm.Way) error {
	c.objects = append(c.objects, way)
	return nil
}

func (c *Collector) HandleRelation(relation *osm.Relation) error {
	return nil
}

func (c *Collector) Done() error {
	sigolo.Debugf("Filter %d collected elements", len(c.objects))
	filterStartTime := time.Now()

	c.network = Filter(c.objects, c.AllowedHighwayTypes, c.MinNodes)
	c.objects = nil

	sigolo.Infof("Filtered %d roads with %d nodes in %s", len(c.network.Roads), len(c.network.Nodes), time.Since(filterStartTime))
	return nil
}

// Network returns the filtered network or nil if the input hasn't been read completely yet.
func (c *Collector) Network() *Network {
	return c.network
}
