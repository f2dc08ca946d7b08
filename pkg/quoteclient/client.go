// Package quoteclient is the client SDK for the public quote surface.
// It keeps an optimistic local selection per quote session, syncs every
// toggle with the backend and reconciles the authoritative response,
// discarding stale replies by sequence number.
package quoteclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Kind buckets a failed request for presentation. The user always sees
// a generic message; the kind is for callers that want to distinguish
// connectivity problems from rejections.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindServer     Kind = "server"
	KindValidation Kind = "validation"
)

var (
	// ErrUnknownItem mirrors the selection model's local error: the
	// toggled ID names no optional item of the quote. Nothing is sent.
	ErrUnknownItem = errors.New("unknown_item")

	// ErrAlreadyAccepted is returned by AcceptPackage when the quote
	// was finalized earlier with a different package.
	ErrAlreadyAccepted = errors.New("quote_already_accepted")

	// ErrQuoteFinalized is returned by Toggle after a successful
	// acceptance; no further selection updates are permitted.
	ErrQuoteFinalized = errors.New("quote_finalized")
)

// RequestError is a failed backend call. Raw backend payloads are never
// carried; Message is safe to show.
type RequestError struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("quoteclient: %s error (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("quoteclient: %s error", e.Kind)
}

// Notifier receives user-facing feedback from the sync flow. Implement
// it with whatever the host UI uses for transient messages; the zero
// default drops everything.
type Notifier interface {
	Updating()
	Updated(totals Totals)
	Error(message string)
}

type nopNotifier struct{}

func (nopNotifier) Updating()      {}
func (nopNotifier) Updated(Totals) {}
func (nopNotifier) Error(string)   {}

// Client issues requests against one backend base URL. It is safe for
// concurrent use; per-quote mutable state lives on Session.
type Client struct {
	httpClient *http.Client
	baseURL    string
	notifier   Notifier
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 10s-timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithNotifier installs the feedback sink for all sessions opened from
// this client.
func WithNotifier(n Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// New builds a client for the given base URL, e.g.
// "https://api.example.com".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		notifier:   nopNotifier{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
