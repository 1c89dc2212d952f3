package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

const (
	jsonlContentType = "application/x-ndjson"

	// multipartThreshold switches uploads to the multipart manager.
	multipartThreshold = 8 * 1024 * 1024
)

// DefaultMaxPending bounds the observations held between uploads.
const DefaultMaxPending = 100_000

// Archiver buffers every accepted observation and uploads the buffer to
// object storage as one JSONL object per flush. It sits on the scanner's
// publish path, so what it archives does not depend on the size of the
// in-memory log or on subscriber buffers. Observations are only discarded
// (oldest first, counted) when uploads keep failing and the buffer reaches
// its bound.
type Archiver struct {
	writer     domain.BlobWriter
	maxPending int
	logger     *slog.Logger

	mu      sync.Mutex
	pending []domain.Opportunity
	dropped int64
}

// NewArchiver creates an Archiver. A non-positive maxPending uses
// DefaultMaxPending.
func NewArchiver(writer domain.BlobWriter, maxPending int, logger *slog.Logger) *Archiver {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Archiver{
		writer:     writer,
		maxPending: maxPending,
		logger:     logger.With(slog.String("component", "archiver")),
	}
}

// Publish queues the observation carried by an opportunity message. Other
// message kinds are ignored. It never blocks on storage.
func (a *Archiver) Publish(msg domain.Message) {
	if om, ok := msg.(domain.OpportunityMessage); ok {
		a.Add(om.Opportunity)
	}
}

// Add queues one observation for the next flush.
func (a *Archiver) Add(opp domain.Opportunity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = append(a.pending, opp)
	a.trimLocked()
}

// Pending returns the number of observations waiting for upload.
func (a *Archiver) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Dropped returns how many observations were discarded at the bound.
func (a *Archiver) Dropped() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Flush uploads everything queued so far as one object and returns how many
// observations it held. On failure the batch is put back in front of
// anything queued meanwhile and retried on the next flush.
func (a *Archiver) Flush(ctx context.Context) (int, error) {
	a.mu.Lock()
	batch := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	if err := a.upload(ctx, batch); err != nil {
		a.mu.Lock()
		a.pending = append(batch, a.pending...)
		a.trimLocked()
		a.mu.Unlock()
		return 0, err
	}
	return len(batch), nil
}

func (a *Archiver) upload(ctx context.Context, batch []domain.Opportunity) error {
	buf, err := marshalJSONL(batch)
	if err != nil {
		return fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath(batch[len(batch)-1].Timestamp)
	if len(buf) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return fmt.Errorf("s3blob: archive upload: %w", err)
	}

	a.logger.InfoContext(ctx, "archiver: uploaded observations",
		slog.String("path", path),
		slog.Int("count", len(batch)),
	)
	return nil
}

// trimLocked drops the oldest queued observations beyond maxPending.
func (a *Archiver) trimLocked() {
	if over := len(a.pending) - a.maxPending; over > 0 {
		a.pending = append([]domain.Opportunity(nil), a.pending[over:]...)
		a.dropped += int64(over)
		a.logger.Warn("archiver: buffer full, dropped oldest observations",
			slog.Int("dropped", over),
			slog.Int64("dropped_total", a.dropped),
		)
	}
}

// RunLoop flushes on every tick until ctx is cancelled, then makes one last
// flush so the tail is not lost. RunLoop returns ctx.Err().
func (a *Archiver) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	flush := func(ctx context.Context) {
		if _, err := a.Flush(ctx); err != nil {
			a.logger.WarnContext(ctx, "archiver: flush failed",
				slog.String("error", err.Error()),
				slog.Int("pending", a.Pending()),
			)
		}
	}

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			flush(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			flush(ctx)
		}
	}
}

// archivePath partitions objects by UTC day, named by the newest timestamp
// they contain:
//
//	observations/2025/01/31/1738281600123.jsonl
func archivePath(newest time.Time) string {
	u := newest.UTC()
	return fmt.Sprintf("observations/%s/%d.jsonl", u.Format("2006/01/02"), u.UnixMilli())
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
