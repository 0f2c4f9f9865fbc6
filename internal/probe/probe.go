// Package probe captures a screenshot of the monitored website with a headless
// Chrome instance.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"tg_monitor_bot/internal/logging"
)

// Probe status labels.
const (
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
)

const (
	defaultTimeout = 60 * time.Second
	windowWidth    = 1920
	windowHeight   = 1080
)

// Result is the outcome of a single probe run. ArtifactPath is empty when no
// screenshot was written.
type Result struct {
	Status       string
	ArtifactPath string
	Err          error
}

// OK reports whether the probe produced a screenshot.
func (r Result) OK() bool {
	return r.Status == StatusSuccess && r.ArtifactPath != ""
}

// capture is overridable for tests.
var capture = func(ctx context.Context, target string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(windowWidth, windowHeight),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var shot []byte
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(target),
		chromedp.CaptureScreenshot(&shot),
	); err != nil {
		return nil, err
	}

	return shot, nil
}

// Probe navigates to URL and writes a PNG screenshot to ArtifactPath,
// overwriting any previous capture. Every Run starts and tears down its own
// browser. Runs take a single slot in turn; a run whose ctx ends while
// waiting for the slot fails without capturing. Timeout applies from the
// moment the slot is held.
type Probe struct {
	URL          string
	ArtifactPath string
	Timeout      time.Duration
	logger       *logrus.Entry
	slot         *semaphore.Weighted
}

// New constructs a Probe for the given target and artifact path.
func New(url, artifactPath string, logger *logrus.Entry) *Probe {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Probe{
		URL:          url,
		ArtifactPath: artifactPath,
		Timeout:      defaultTimeout,
		logger:       logger,
		slot:         semaphore.NewWeighted(1),
	}
}

// Run performs the capture synchronously. Failures are reported through the
// result status rather than a returned error.
func (p *Probe) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if p == nil || p.URL == "" || p.ArtifactPath == "" || p.slot == nil {
		return Result{Status: StatusFailed, Err: errors.New("probe is not configured")}
	}

	if err := p.slot.Acquire(ctx, 1); err != nil {
		return p.fail(fmt.Errorf("wait for previous probe: %w", err))
	}
	defer p.slot.Release(1)

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	shot, err := capture(runCtx, p.URL)
	if err != nil {
		return p.fail(fmt.Errorf("capture %s: %w", p.URL, err))
	}

	if err := writeArtifact(p.ArtifactPath, shot); err != nil {
		return p.fail(err)
	}

	p.logger.WithFields(logging.Fields{
		"event":       "probe_captured",
		"url":         p.URL,
		"artifact":    p.ArtifactPath,
		"bytes":       len(shot),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("screenshot captured")

	return Result{Status: StatusSuccess, ArtifactPath: p.ArtifactPath}
}

func (p *Probe) fail(err error) Result {
	p.logger.WithFields(logging.Fields{
		"event": "probe_failed",
		"url":   p.URL,
	}).WithError(err).Warn("website probe failed")

	return Result{Status: StatusFailed, Err: err}
}

// writeArtifact replaces path atomically so a reader streaming the previous
// capture never sees a truncated file.
func writeArtifact(path string, data []byte) error {
	if len(data) == 0 {
		return errors.New("empty screenshot")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}
