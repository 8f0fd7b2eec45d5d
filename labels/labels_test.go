package labels

import (
	"bytes"
	"github.com/paulmach/osm"
	"os"
	"path/filepath"
	"roadview/roads"
	"roadview/util"
	"testing"
)

func road(id osm.WayID, tags map[string]string) *roads.Road {
	return &roads.Road{ID: id, NodeIDs: []osm.NodeID{1, 2, 3}, Tags: tags}
}

func testRegions() []Region {
	return []Region{
		{
			Name: "boulder",
			Roads: map[osm.WayID]*roads.Road{
				1: road(1, map[string]string{"highway": "residential", "bicycle": "designated"}),
				2: road(2, map[string]string{"highway": "primary", "cycleway": "lane ", "maxspeed": " 25 mph"}),
			},
		},
		{
			Name: "portland",
			Roads: map[osm.WayID]*roads.Road{
				2: road(2, map[string]string{"highway": "secondary"}),
				3: road(3, map[string]string{"highway": "tertiary", "bicycle": "no", "lanes": "2", "oneway": "yes"}),
			},
		},
	}
}

func TestIsBicycleFacility(t *testing.T) {
	util.AssertTrue(t, IsBicycleFacility("designated", ""))
	util.AssertTrue(t, IsBicycleFacility("yes", ""))
	util.AssertTrue(t, IsBicycleFacility("yes;designated", ""))
	util.AssertTrue(t, IsBicycleFacility("", "shared_lane"))
	util.AssertTrue(t, IsBicycleFacility("no", "track"))
	util.AssertTrue(t, IsBicycleFacility("", "share_busway"))

	util.AssertFalse(t, IsBicycleFacility("", ""))
	util.AssertFalse(t, IsBicycleFacility("no", "no"))
	util.AssertFalse(t, IsBicycleFacility("dismount", "separate"))
}

func TestLabelImages(t *testing.T) {
	// Act
	result := LabelImages([]string{"1_10.jpg", "2_20.jpg", "3_30.jpg"}, testRegions())

	// Assert
	util.AssertEqual(t, 0, result.NotFound)
	util.AssertEqual(t, []Row{
		{Region: "boulder", Filename: "1_10.jpg", Highway: "residential", Bicycle: "designated", Label: 1},
		{Region: "boulder", Filename: "2_20.jpg", Highway: "primary", Cycleway: "lane", MaxSpeed: "25 mph", Label: 1},
		{Region: "portland", Filename: "3_30.jpg", Highway: "tertiary", Bicycle: "no", Lanes: "2", OneWay: "yes", Label: 0},
	}, result.Rows)
}

func TestLabelImages_regionPriority(t *testing.T) {
	regions := testRegions()
	reversed := []Region{regions[1], regions[0]}

	result := LabelImages([]string{"2_20.jpg"}, reversed)

	util.AssertEqual(t, 1, len(result.Rows))
	util.AssertEqual(t, "portland", result.Rows[0].Region)
	util.AssertEqual(t, "secondary", result.Rows[0].Highway)
	util.AssertEqual(t, 0, result.Rows[0].Label)
}

func TestLabelImages_notFound(t *testing.T) {
	result := LabelImages([]string{"w1_10.jpg", "99_1.jpg", "garbage.jpg"}, testRegions())

	util.AssertEqual(t, 1, len(result.Rows))
	util.AssertEqual(t, "w1_10.jpg", result.Rows[0].Filename)
	util.AssertEqual(t, 2, result.NotFound)
	util.AssertEqual(t, []string{"99_1.jpg", "garbage.jpg"}, result.NotFoundFilenames)
}

func TestWriteAndReadCSV(t *testing.T) {
	// Arrange
	rows := LabelImages([]string{"1_10.jpg", "3_30.jpg"}, testRegions()).Rows
	buffer := &bytes.Buffer{}

	// Act
	err := WriteCSV(rows, buffer)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, "region,filename,highway,bicycle,cycleway,lanes,maxspeed,oneway,label\n"+
		"boulder,1_10.jpg,residential,designated,,,,,1\n"+
		"portland,3_30.jpg,tertiary,no,,2,,yes,0\n", buffer.String())

	readRows, err := ReadCSV(bytes.NewReader(buffer.Bytes()))
	util.AssertNil(t, err)
	util.AssertEqual(t, rows, readRows)
}

func TestReadCSV_missingColumn(t *testing.T) {
	_, err := ReadCSV(bytes.NewBufferString("region,filename\nboulder,1_2.jpg\n"))
	util.AssertError(t, "CSV header has no column 'label'", err)
}

func TestOrganize(t *testing.T) {
	// Arrange
	imageDir := t.TempDir()
	targetDir := filepath.Join(t.TempDir(), "organized")
	util.AssertNil(t, os.WriteFile(filepath.Join(imageDir, "1_10.jpg"), []byte("a"), 0644))
	util.AssertNil(t, os.WriteFile(filepath.Join(imageDir, "3_30.jpg"), []byte("b"), 0644))
	rows := []Row{
		{Filename: "1_10.jpg", Label: 1},
		{Filename: "3_30.jpg", Label: 0},
	}

	// Act
	copied, err := Organize(rows, imageDir, targetDir)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, 2, copied)
	data, err := os.ReadFile(filepath.Join(targetDir, "1", "1_10.jpg"))
	util.AssertNil(t, err)
	util.AssertEqual(t, "a", string(data))
	data, err = os.ReadFile(filepath.Join(targetDir, "0", "3_30.jpg"))
	util.AssertNil(t, err)
	util.AssertEqual(t, "b", string(data))
}

func TestOrganize_filenameWithPath(t *testing.T) {
	// Arrange
	baseDir := t.TempDir()
	imageDir := filepath.Join(baseDir, "images")
	targetDir := filepath.Join(baseDir, "organized")
	util.AssertNil(t, os.MkdirAll(imageDir, 0755))
	util.AssertNil(t, os.WriteFile(filepath.Join(baseDir, "secret.jpg"), []byte("a"), 0644))

	// Act
	copied, err := Organize([]Row{{Filename: "../secret.jpg", Label: 1}}, imageDir, targetDir)

	// Assert
	util.AssertError(t, "Image filename '../secret.jpg' must not contain a path", err)
	util.AssertEqual(t, 0, copied)
	_, err = os.Stat(filepath.Join(targetDir, "secret.jpg"))
	util.AssertTrue(t, os.IsNotExist(err))
}

func TestOrganize_missingImage(t *testing.T) {
	copied, err := Organize([]Row{{Filename: "1_10.jpg", Label: 1}}, t.TempDir(), t.TempDir())

	util.AssertNotNil(t, err)
	util.AssertEqual(t, 0, copied)
}
