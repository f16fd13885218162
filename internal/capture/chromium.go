// Package capture renders the calendar page in headless Chromium and saves
// a screenshot once the page has finished its load cycle.
package capture

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	appLog "eventcal/internal/log"
)

const (
	DefaultWidth   = 800
	DefaultHeight  = 600
	DefaultTimeout = 30 * time.Second
)

// Options defines parameters for a snapshot.
type Options struct {
	// URL of the calendar page, e.g. "http://127.0.0.1:8080/".
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the viewport size in pixels. Zero means the
	// defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Result describes how the captured load ended.
type Result struct {
	// OK is false when the page reported a failed load.
	OK bool
	// Alerts holds the dialog messages the page raised, in order.
	Alerts []string
}

// Snapshot navigates to opts.URL, accepts every alert dialog the page
// raises, waits until the body carries data-ready="true" and writes a full
// page PNG to opts.OutputPath.
func Snapshot(parentCtx context.Context, opts Options) (*Result, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var (
		mu     sync.Mutex
		alerts []string
	)
	chromedp.ListenTarget(ctx, func(ev any) {
		if e, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			mu.Lock()
			alerts = append(alerts, e.Message)
			mu.Unlock()
			appLog.Info("page alert", "message", e.Message)
			// Dialogs block the page; accept from a separate goroutine so
			// the event loop keeps running.
			go func() {
				if err := chromedp.Run(ctx, page.HandleJavaScriptDialog(true)); err != nil {
					appLog.Error("failed to dismiss page alert", err)
				}
			}()
		}
	})

	var (
		png   []byte
		okVal string
		found bool
	)
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`body[data-ready="true"]`, chromedp.ByQuery),
		chromedp.AttributeValue(`body`, "data-ok", &okVal, &found, chromedp.ByQuery),
		// The transition has finished before ready is signalled; this only
		// covers the final paint.
		chromedp.Sleep(200 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return nil, fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return &Result{
		OK:     found && okVal == "true",
		Alerts: append([]string(nil), alerts...),
	}, nil
}
