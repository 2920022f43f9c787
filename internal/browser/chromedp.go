package browser

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Chrome backs the Port with a headless Chrome via chromedp. Small
// jittered pauses between interactions keep the pacing human-ish.
type Chrome struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

const navigationTimeout = 30 * time.Second

func NewChrome(parent context.Context, log zerolog.Logger) (*Chrome, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		ctxCancel()
		allocCancel()
		return nil, err
	}

	cancel := func() {
		ctxCancel()
		allocCancel()
	}
	return &Chrome{ctx: ctx, cancel: cancel, log: log}, nil
}

func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.ctx, navigationTimeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) Fill(ctx context.Context, selector, value string) error {
	pause()
	return c.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	pause()
	return c.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (c *Chrome) WaitVisible(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (c *Chrome) Text(ctx context.Context, selector string) (string, error) {
	var out string
	err := c.run(ctx, chromedp.Text(selector, &out, chromedp.ByQuery))
	return out, err
}

func (c *Chrome) InterceptResponses(ctx context.Context, urlSubstr string) (<-chan Response, func(), error) {
	ch := make(chan Response, 8)
	listenCtx, stop := context.WithCancel(c.ctx)

	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || !strings.Contains(resp.Response.URL, urlSubstr) {
			return
		}
		reqID := resp.RequestID
		url := resp.Response.URL
		status := int(resp.Response.Status)
		// The body is only fetchable once loading finished; a short defer
		// is enough for the JSON auth responses this intercepts.
		go func() {
			body, err := c.responseBody(reqID)
			if err != nil {
				c.log.Debug().Err(err).Str("url", url).Msg("response body unavailable")
				return
			}
			select {
			case ch <- Response{URL: url, Status: status, Body: body}:
			case <-listenCtx.Done():
			}
		}()
	})

	return ch, stop, nil
}

func (c *Chrome) responseBody(reqID network.RequestID) ([]byte, error) {
	cc := chromedp.FromContext(c.ctx)
	execCtx := cdp.WithExecutor(c.ctx, cc.Target)
	return network.GetResponseBody(reqID).Do(execCtx)
}

func (c *Chrome) Close() error {
	c.cancel()
	return nil
}

// pause sleeps 200-700ms between interactions.
func pause() {
	time.Sleep(time.Duration(200+rand.Intn(500)) * time.Millisecond)
}
