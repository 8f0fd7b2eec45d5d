package streetview

import (
	"fmt"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const ImageFileExtension = ".jpg"

// ImageID is the storage address of the image taken at the given node of the given road.
func ImageID(roadID osm.WayID, nodeID osm.NodeID) string {
	return fmt.Sprintf("%d_%d", roadID, nodeID)
}

// ParseImageFilename extracts the road and node ID from a filename like "123_456.jpg". A single letter prefix of the
// road ID, like in "w123_456.jpg", is accepted as well.
func ParseImageFilename(filename string) (osm.WayID, osm.NodeID, error) {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	parts := strings.Split(name, "_")
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("Image filename '%s' doesn't have the form <roadId>_<nodeId>", filename)
	}

	roadPart := parts[0]
	if len(roadPart) > 1 && isAsciiLetter(roadPart[0]) {
		roadPart = roadPart[1:]
	}

	roadID, err := strconv.ParseUint(roadPart, 10, 63)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "Invalid road ID in image filename '%s'", filename)
	}

	nodeID, err := strconv.ParseUint(parts[1], 10, 63)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "Invalid node ID in image filename '%s'", filename)
	}

	return osm.WayID(roadID), osm.NodeID(nodeID), nil
}

func isAsciiLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// ImageStore keeps images as files in one directory, named by their image ID.
type ImageStore struct {
	Dir string
}

func NewImageStore(dir string) (*ImageStore, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to create image directory %s", dir)
	}
	return &ImageStore{Dir: dir}, nil
}

func (s *ImageStore) Path(imageID string) string {
	return filepath.Join(s.Dir, imageID+ImageFileExtension)
}

func (s *ImageStore) Save(imageID string, data []byte) error {
	err := os.WriteFile(s.Path(imageID), data, 0644)
	return errors.Wrapf(err, "Unable to save image %s", imageID)
}

// Filenames returns the names of all images in the store.
func (s *ImageStore) Filenames() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to list image directory %s", s.Dir)
	}

	var filenames []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ImageFileExtension) {
			filenames = append(filenames, entry.Name())
		}
	}
	return filenames, nil
}
