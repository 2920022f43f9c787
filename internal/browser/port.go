// Package browser defines the narrow automation port the simulated-
// browser auth strategy drives, plus its chromedp implementation.
package browser

import "context"

// Response is one intercepted network response.
type Response struct {
	URL    string
	Status int
	Body   []byte
}

// Port is the automation surface: navigate, fill, click, wait, read,
// intercept. Any engine that can do these six things can back the
// simulated-browser login.
type Port interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	WaitVisible(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)

	// InterceptResponses starts capturing responses whose URL contains
	// urlSubstr. The returned stop function ends the capture.
	InterceptResponses(ctx context.Context, urlSubstr string) (<-chan Response, func(), error)

	Close() error
}
