package interfaces

import (
	"context"
	"time"
)

// Link is an anchor found on the current page.
type Link struct {
	Text string
	Href string
}

// Actuator is the browser collaborator. The core only depends on these verbs,
// never on a specific element-finding implementation. Selectors are CSS
// selector intents; every call is bounded by the given timeout.
type Actuator interface {
	Navigate(ctx context.Context, url string) error
	ReadText(ctx context.Context, selector string, timeout time.Duration) (string, error)
	Click(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Links returns text and href for every anchor matching the selector.
	Links(ctx context.Context, selector string, timeout time.Duration) ([]Link, error)
	Close(ctx context.Context) error
}
