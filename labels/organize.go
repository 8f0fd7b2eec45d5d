package labels

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Organize copies every labeled image from imageDir into "<targetDir>/<label>/<filename>" and returns the number of
// copied images.
func Organize(rows []Row, imageDir string, targetDir string) (int, error) {
	copied := 0
	for _, row := range rows {
		if row.Filename == "" || filepath.Base(row.Filename) != row.Filename {
			return copied, errors.Errorf("Image filename '%s' must not contain a path", row.Filename)
		}

		labelDir := filepath.Join(targetDir, strconv.Itoa(row.Label))
		err := os.MkdirAll(labelDir, 0755)
		if err != nil {
			return copied, errors.Wrapf(err, "Unable to create label directory %s", labelDir)
		}

		err = copyFile(filepath.Join(imageDir, row.Filename), filepath.Join(labelDir, row.Filename))
		if err != nil {
			return copied, err
		}

		copied++
		if copied%1000 == 0 {
			sigolo.Infof("Copied %d of %d images", copied, len(rows))
		}
	}

	sigolo.Infof("Copied %d images into %s", copied, targetDir)
	return copied, nil
}

func copyFile(from string, to string) error {
	source, err := os.Open(from)
	if err != nil {
		return errors.Wrapf(err, "Unable to open image %s", from)
	}
	defer source.Close()

	target, err := os.Create(to)
	if err != nil {
		return errors.Wrapf(err, "Unable to create image %s", to)
	}

	_, err = io.Copy(target, source)
	if err != nil {
		target.Close()
		return errors.Wrapf(err, "Unable to copy image %s to %s", from, to)
	}

	return errors.Wrapf(target.Close(), "Unable to close image %s", to)
}
