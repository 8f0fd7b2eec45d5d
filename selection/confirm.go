package selection

import (
	"bufio"
	"fmt"
	"github.com/pkg/errors"
	"io"
	"strings"
)

// ConsoleConfirmer asks on the writer whether the images should be downloaded and reads the answer from the reader.
// Only "y" and "yes" confirm.
func ConsoleConfirmer(reader io.Reader, writer io.Writer) Confirmer {
	return func(imageCount int) (bool, error) {
		_, err := fmt.Fprintf(writer, "Download %d images? [y/N] ", imageCount)
		if err != nil {
			return false, errors.Wrap(err, "Unable to write confirmation prompt")
		}

		answer, err := bufio.NewReader(reader).ReadString('\n')
		if err != nil && err != io.EOF {
			return false, errors.Wrap(err, "Unable to read confirmation answer")
		}

		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes", nil
	}
}

func AlwaysConfirm(int) (bool, error) {
	return true, nil
}
