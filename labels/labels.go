package labels

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"roadview/roads"
	"roadview/streetview"
	"slices"
	"strings"
)

// FacilityCycleways are the "cycleway" values that count as bicycle infrastructure.
var FacilityCycleways = []string{
	"lane",
	"shared",
	"shared_lane",
	"opposite_lane",
	"yes",
	"cycle_greenway",
	"track",
	"share_busway",
}

// Region is a named set of roads. Regions are expected to be disjoint.
type Region struct {
	Name  string
	Roads map[osm.WayID]*roads.Road
}

type Row struct {
	Region   string
	Filename string
	Highway  string
	Bicycle  string
	Cycleway string
	Lanes    string
	MaxSpeed string
	OneWay   string
	Label    int
}

type Result struct {
	Rows              []Row
	NotFound          int
	NotFoundFilenames []string
}

// IsBicycleFacility returns true when the "bicycle" and "cycleway" tag values indicate bicycle infrastructure.
func IsBicycleFacility(bicycle string, cycleway string) bool {
	return bicycle == "designated" ||
		strings.Contains(bicycle, "yes") ||
		slices.Contains(FacilityCycleways, cycleway)
}

// LabelImages looks up the road of each image filename in the regions and labels it. The regions are searched in the
// given order and the first region containing the road wins. Filenames that can't be parsed or whose road isn't in any
// region produce no row but are counted as not found.
func LabelImages(filenames []string, regions []Region) *Result {
	result := &Result{}

	for _, filename := range filenames {
		roadID, _, err := streetview.ParseImageFilename(filename)
		if err != nil {
			sigolo.Debugf("Skip image: %s", err.Error())
			result.addNotFound(filename)
			continue
		}

		region, road := findRoad(roadID, regions)
		if road == nil {
			sigolo.Debugf("Road %d of image %s not found in any region", roadID, filename)
			result.addNotFound(filename)
			continue
		}

		row := Row{
			Region:   region,
			Filename: filename,
			Highway:  strings.TrimSpace(road.Tag("highway")),
			Bicycle:  strings.TrimSpace(road.Tag("bicycle")),
			Cycleway: strings.TrimSpace(road.Tag("cycleway")),
			Lanes:    strings.TrimSpace(road.Tag("lanes")),
			MaxSpeed: strings.TrimSpace(road.Tag("maxspeed")),
			OneWay:   strings.TrimSpace(road.Tag("oneway")),
		}
		if IsBicycleFacility(row.Bicycle, row.Cycleway) {
			row.Label = 1
		}

		result.Rows = append(result.Rows, row)
	}

	sigolo.Infof("Labeled %d images, %d not found", len(result.Rows), result.NotFound)
	return result
}

func (r *Result) addNotFound(filename string) {
	r.NotFound++
	r.NotFoundFilenames = append(r.NotFoundFilenames, filename)
}

func findRoad(roadID osm.WayID, regions []Region) (string, *roads.Road) {
	for _, region := range regions {
		if road, ok := region.Roads[roadID]; ok && road != nil {
			return region.Name, road
		}
	}
	return "", nil
}
