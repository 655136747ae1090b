package workflow

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"ecoscan/pkg/config"
	"ecoscan/pkg/ecosapiens"
	errs "ecoscan/pkg/errors"
	"ecoscan/pkg/logger"
	"ecoscan/pkg/models"
	"ecoscan/pkg/retry"

	"github.com/google/uuid"
)

// Progress labels reported to the Observer
const (
	LabelSearching   = "Searching images..."
	LabelDownloading = "Downloading image..."
	LabelUploading   = "Uploading image..."
	LabelWaiting     = "Waiting for scan result..."
)

// ImageSource finds and fetches candidate images
type ImageSource interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.ImageRef, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// ScanService accepts uploads and reports scan state
type ScanService interface {
	Submit(ctx context.Context, image []byte, filename string) (string, error)
	Poll(ctx context.Context, scanID string) (models.ScanResult, error)
}

// Observer receives human readable progress labels
type Observer func(label string)

// Options tunes a Workflow. Zero values fall back to the defaults.
type Options struct {
	Categories   []string
	QuerySuffix  string
	MaxResults   int
	PollAttempts int
	PollInterval time.Duration

	Rand  retry.Rand
	Clock retry.Clock
	Now   func() time.Time
}

// OptionsFromConfig derives workflow options from configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Categories:   cfg.Scan.Categories,
		QuerySuffix:  cfg.Scan.QuerySuffix,
		MaxResults:   cfg.Pexels.MaxResults,
		PollAttempts: cfg.Scan.PollAttempts,
		PollInterval: cfg.Scan.PollInterval,
	}
}

func (o Options) withDefaults() Options {
	if len(o.Categories) == 0 {
		o.Categories = config.DefaultCategories
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 100
	}
	if o.PollAttempts <= 0 {
		o.PollAttempts = 30
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Clock == nil {
		o.Clock = retry.RealClock{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Attempt describes one run of the workflow. It lives only for that run.
type Attempt struct {
	ID       uuid.UUID
	Category string
	Query    string
	Image    models.ImageRef
	ScanID   string
	Polls    int
}

// Workflow performs single scan attempts for one account
type Workflow struct {
	source  ImageSource
	service ScanService
	opts    Options
	logger  logger.Logger
}

// New creates a workflow over the given image source and scan service
func New(source ImageSource, service ScanService, opts Options, log logger.Logger) *Workflow {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Workflow{
		source:  source,
		service: service,
		opts:    opts.withDefaults(),
		logger:  log,
	}
}

// Run performs one attempt: pick a category, find and download an image,
// upload it and poll the scan until it completes, fails or times out.
// Errors are classified with a pkg/errors Kind; context cancellation is
// returned as is.
func (w *Workflow) Run(ctx context.Context, observe Observer) (models.Outcome, error) {
	if observe == nil {
		observe = func(string) {}
	}

	attempt := &Attempt{ID: uuid.New()}
	attempt.Category = w.opts.Categories[w.opts.Rand.Intn(len(w.opts.Categories))]
	attempt.Query = strings.TrimSpace(attempt.Category + " " + w.opts.QuerySuffix)

	log := w.logger.WithFields(map[string]interface{}{
		"attempt_id": attempt.ID.String(),
		"category":   attempt.Category,
	})

	outcome, err := w.run(ctx, attempt, observe, log)
	if err != nil {
		if !errs.IsCanceled(err) {
			log.WithError(err).WarnWithFields("scan attempt failed", map[string]interface{}{
				"kind":  string(errs.KindOf(err)),
				"polls": attempt.Polls,
			})
		}
		return models.Outcome{}, err
	}

	log.InfoWithFields("scan attempt completed", map[string]interface{}{
		"scan_id":       attempt.ScanID,
		"polls":         attempt.Polls,
		"product_found": outcome.ProductFound,
		"product":       outcome.ProductName,
	})
	return outcome, nil
}

func (w *Workflow) run(ctx context.Context, attempt *Attempt, observe Observer, log logger.Logger) (models.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return models.Outcome{}, err
	}
	observe(LabelSearching)
	candidates, err := w.source.Search(ctx, attempt.Query, w.opts.MaxResults)
	if err != nil {
		return models.Outcome{}, classify(errs.KindSourceUnavailable, "Pexels API error", err)
	}
	if len(candidates) == 0 {
		return models.Outcome{}, errs.New(errs.KindNoImagesFound, "No images found: "+attempt.Query)
	}
	attempt.Image = candidates[w.opts.Rand.Intn(len(candidates))]

	if err := ctx.Err(); err != nil {
		return models.Outcome{}, err
	}
	observe(LabelDownloading)
	image, err := w.source.Download(ctx, attempt.Image.URL)
	if err != nil {
		return models.Outcome{}, classify(errs.KindDownloadFailed, "image download failed", err)
	}

	if err := ctx.Err(); err != nil {
		return models.Outcome{}, err
	}
	observe(LabelUploading)
	filename := ecosapiens.ScanFilename(w.opts.Now())
	attempt.ScanID, err = w.service.Submit(ctx, image, filename)
	if err != nil {
		return models.Outcome{}, classify(errs.KindUploadFailed, "upload failed", err)
	}
	log.DebugWithFields("image submitted", map[string]interface{}{
		"scan_id": attempt.ScanID,
		"label":   attempt.Image.Label,
	})

	observe(LabelWaiting)
	return w.poll(ctx, attempt, observe)
}

// poll queries the scan at most PollAttempts times, sleeping PollInterval
// between consecutive queries only
func (w *Workflow) poll(ctx context.Context, attempt *Attempt, observe Observer) (models.Outcome, error) {
	total := w.opts.PollAttempts
	for i := 1; i <= total; i++ {
		if i > 1 {
			if err := w.opts.Clock.Sleep(ctx, w.opts.PollInterval); err != nil {
				return models.Outcome{}, err
			}
		}
		if err := ctx.Err(); err != nil {
			return models.Outcome{}, err
		}

		result, err := w.service.Poll(ctx, attempt.ScanID)
		attempt.Polls = i
		if err != nil {
			return models.Outcome{}, classify(errs.KindServiceError, "scan status lookup failed", err)
		}

		if !result.Terminal() {
			observe(fmt.Sprintf("Processing... (%d/%d)", i, total))
			continue
		}
		if result.Status == models.ScanStatusFailed {
			return models.Outcome{}, errs.Rejected(result.FailureReason)
		}
		if result.Product == nil {
			return models.Outcome{ProductFound: false}, nil
		}
		return models.Outcome{
			ProductFound: true,
			ProductName:  result.Product.Name,
			Score:        result.Product.Score,
		}, nil
	}

	return models.Outcome{}, errs.New(errs.KindScanTimeout, "")
}

// classify keeps an existing classification and otherwise applies kind
func classify(kind errs.Kind, reason string, err error) error {
	if errs.IsCanceled(err) || errs.KindOf(err) != "" {
		return err
	}
	return errs.Wrap(kind, reason, err)
}
