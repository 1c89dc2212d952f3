package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceUnavailable covers every transport, status and payload failure
	// of a price source. The scan cycle that hit it is skipped.
	ErrSourceUnavailable = errors.New("price source unavailable")

	// ErrAmbiguousQuote means neither side of a venue quote is usable. It
	// matches ErrSourceUnavailable under errors.Is.
	ErrAmbiguousQuote = fmt.Errorf("ambiguous venue quote: %w", ErrSourceUnavailable)

	// ErrNoiseSpread marks a sample whose spread is at or above the sanity
	// ceiling. It is a filtering decision, not a failure.
	ErrNoiseSpread = errors.New("spread above sanity ceiling")

	// ErrSubscriberDisconnected ends a single subscriber's forwarder.
	ErrSubscriberDisconnected = errors.New("subscriber disconnected")
)
