package domains

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	cdpp "github.com/chromedp/cdproto/page"
)

// Page exposes the CDP Page domain actions.
type Page interface {
	Enable(context.Context) error
	Navigate(ctx context.Context, url string) (frameID string, err error)
	HandleJavaScriptDialog(ctx context.Context, accept bool) error
	CaptureScreenshot(ctx context.Context) ([]byte, error)
}

var _ Page = &page{}

type page struct {
	exec cdp.Executor
}

// NewPage returns a new CDP Page domain wrapper.
func NewPage(exec cdp.Executor) Page {
	return &page{exec}
}

func (p *page) Enable(ctx context.Context) error {
	action := cdpp.Enable()
	if err := action.Do(cdp.WithExecutor(ctx, p.exec)); err != nil {
		return fmt.Errorf("enabling page CDP domain: %w", err)
	}

	return nil
}

func (p *page) Navigate(ctx context.Context, url string) (string, error) {
	action := cdpp.Navigate(url)

	frameID, _, errorText, err := action.Do(cdp.WithExecutor(ctx, p.exec))
	if err == nil && errorText != "" {
		err = fmt.Errorf("%s", errorText)
	}
	if err != nil {
		return "", fmt.Errorf("navigating to %q: %w", url, err)
	}

	return frameID.String(), nil
}

func (p *page) HandleJavaScriptDialog(ctx context.Context, accept bool) error {
	action := cdpp.HandleJavaScriptDialog(accept)
	if err := action.Do(cdp.WithExecutor(ctx, p.exec)); err != nil {
		return fmt.Errorf("handling dialog: %w", err)
	}

	return nil
}

func (p *page) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	action := cdpp.CaptureScreenshot().WithFormat(cdpp.CaptureScreenshotFormatPng)
	buf, err := action.Do(cdp.WithExecutor(ctx, p.exec))
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}

	return buf, nil
}
