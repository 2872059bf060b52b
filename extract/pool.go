package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scambier/omnisearch/readers"
)

const (
	defaultWorkers = 4
	defaultTimeout = 2 * time.Minute
)

// ErrTimeout reports that text extraction exceeded its time budget.
var ErrTimeout = errors.New("text extraction timed out")

// Pool bounds how many text extractions run at once and cuts off jobs
// that take too long. Document conversion can hang on pathological
// inputs, so every job runs under a deadline.
type Pool struct {
	sem     chan struct{}
	timeout time.Duration
	readers []readers.FileReader
	log     *slog.Logger
}

func NewPool(workers int, timeout time.Duration, rs []readers.FileReader, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		sem:     make(chan struct{}, workers),
		timeout: timeout,
		readers: rs,
		log:     log,
	}
}

// CanExtract reports whether any reader handles the given path.
func (p *Pool) CanExtract(path string) bool {
	return p.readerFor(path) != nil
}

// Extract converts the file at path to plain text. It blocks until a
// worker slot is free, then runs the conversion under the pool's timeout.
func (p *Pool) Extract(ctx context.Context, path string) (string, error) {
	reader := p.readerFor(path)
	if reader == nil {
		return "", fmt.Errorf("no reader for file: %s", path)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() { <-p.sem }()
		text, err := reader.ReadText(path)
		done <- result{text, err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.text, res.err
	case <-timer.C:
		p.log.Warn("text extraction timed out", "path", path, "timeout", p.timeout)
		return "", ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *Pool) readerFor(path string) readers.FileReader {
	for _, r := range p.readers {
		if r.CanRead(path) {
			return r
		}
	}
	return nil
}
