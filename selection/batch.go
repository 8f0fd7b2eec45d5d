package selection

import (
	"context"
	"fmt"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"io"
	"roadview/roads"
	"roadview/streetview"
	"sort"
	"sync"
	"time"
)

// Fetcher downloads the image of a query. Implemented by *streetview.Client.
type Fetcher interface {
	Fetch(ctx context.Context, query streetview.ImageQuery) ([]byte, error)
}

// ImageSaver stores downloaded images. Implemented by *streetview.ImageStore.
type ImageSaver interface {
	Save(imageID string, data []byte) error
}

// Confirmer is asked before any image is downloaded. Returning false aborts the batch.
type Confirmer func(imageCount int) (bool, error)

// RoadError is a selection or download failure of one road.
type RoadError struct {
	RoadID osm.WayID
	Err    error
}

func (e *RoadError) Error() string {
	return fmt.Sprintf("road %d: %s", e.RoadID, e.Err.Error())
}

func (e *RoadError) Unwrap() error {
	return e.Err
}

type Result struct {
	Outcomes []*Outcome
	Errors   []*RoadError
	Stats    Stats
	Aborted  bool // True when the download has been declined
}

// Accepted returns all outcomes with an accepted image.
func (r *Result) Accepted() []*Outcome {
	var accepted []*Outcome
	for _, outcome := range r.Outcomes {
		if outcome.IsAccepted() {
			accepted = append(accepted, outcome)
		}
	}
	return accepted
}

// Batch runs the selection for many roads and downloads the accepted images. Without a Fetcher, only the selection
// takes place.
type Batch struct {
	Selector       *Selector
	Fetcher        Fetcher
	Store          ImageSaver
	Confirm        Confirmer
	Workers        int
	FailFast       bool
	ProgressWriter io.Writer
}

func (b *Batch) Run(ctx context.Context, roadsToProcess []*roads.Road) (*Result, error) {
	result := &Result{}

	selectStartTime := time.Now()
	err := b.selectAll(ctx, roadsToProcess, result)
	sortResult(result)
	if err != nil {
		return result, err
	}
	sigolo.Infof("Selected images for %d roads in %s: %d accepted, %d rejected, %d errors", len(roadsToProcess), time.Since(selectStartTime), result.Stats.Accepted, result.Stats.Rejected(), result.Stats.Errors)

	if b.Fetcher == nil {
		return result, nil
	}

	accepted := result.Accepted()
	if len(accepted) == 0 {
		sigolo.Infof("No images to download")
		return result, nil
	}

	if b.Confirm != nil {
		confirmed, err := b.Confirm(len(accepted))
		if err != nil {
			return result, errors.Wrap(err, "Unable to get confirmation for download")
		}
		if !confirmed {
			sigolo.Infof("Download of %d images declined", len(accepted))
			result.Aborted = true
			return result, nil
		}
	}

	downloadStartTime := time.Now()
	err = b.downloadAll(ctx, accepted, result)
	sortResult(result)
	if err != nil {
		return result, err
	}
	sigolo.Infof("Downloaded %d images in %s", result.Stats.Downloaded, time.Since(downloadStartTime))

	return result, nil
}

func (b *Batch) selectAll(ctx context.Context, roadsToProcess []*roads.Road, result *Result) error {
	bar := b.newProgressBar(len(roadsToProcess), "Selecting images")
	defer bar.Finish()

	return b.forEach(ctx, len(roadsToProcess), func(ctx context.Context, i int, lock *sync.Mutex) error {
		road := roadsToProcess[i]
		outcome, err := b.Selector.Select(ctx, road)

		lock.Lock()
		defer lock.Unlock()
		bar.Add(1)

		if err != nil {
			return b.recordError(result, road.ID, err)
		}
		result.Outcomes = append(result.Outcomes, outcome)
		result.Stats.Add(outcome)
		return nil
	})
}

func (b *Batch) downloadAll(ctx context.Context, accepted []*Outcome, result *Result) error {
	bar := b.newProgressBar(len(accepted), "Downloading images")
	defer bar.Finish()

	return b.forEach(ctx, len(accepted), func(ctx context.Context, i int, lock *sync.Mutex) error {
		outcome := accepted[i]

		data, err := b.Fetcher.Fetch(ctx, outcome.Query)
		if err == nil && b.Store != nil {
			err = b.Store.Save(outcome.ImageID, data)
		}

		lock.Lock()
		defer lock.Unlock()
		bar.Add(1)

		if err != nil {
			return b.recordError(result, outcome.RoadID, errors.Wrapf(err, "Unable to download image %s", outcome.ImageID))
		}
		sigolo.Tracef("Downloaded image %s", outcome.ImageID)
		result.Stats.Downloaded++
		return nil
	})
}

// forEach calls the function for all indices from 0 to count-1 with at most b.Workers concurrent calls. No new call
// is started after the context has been cancelled or, when b.FailFast is set, after a call returned an error.
func (b *Batch) forEach(ctx context.Context, count int, f func(ctx context.Context, i int, lock *sync.Mutex) error) error {
	workers := b.Workers
	if workers < 1 {
		workers = 1
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	lock := &sync.Mutex{}

	for i := 0; i < count; i++ {
		if groupCtx.Err() != nil {
			break
		}
		i := i
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			return f(groupCtx, i, lock)
		})
	}

	err := group.Wait()
	if err != nil {
		return err
	}
	return errors.Wrap(ctx.Err(), "Batch cancelled")
}

// recordError must be called while holding the lock.
func (b *Batch) recordError(result *Result, roadID osm.WayID, err error) error {
	roadError := &RoadError{RoadID: roadID, Err: err}
	result.Errors = append(result.Errors, roadError)
	result.Stats.Errors++

	if b.FailFast {
		return roadError
	}
	sigolo.Errorf("%s", roadError.Error())
	return nil
}

func (b *Batch) newProgressBar(count int, description string) *progressbar.ProgressBar {
	writer := b.ProgressWriter
	if writer == nil {
		writer = io.Discard
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func sortResult(result *Result) {
	sort.SliceStable(result.Outcomes, func(i, j int) bool {
		return result.Outcomes[i].RoadID < result.Outcomes[j].RoadID
	})
	sort.SliceStable(result.Errors, func(i, j int) bool {
		return result.Errors[i].RoadID < result.Errors[j].RoadID
	})
}
