// Package sink writes handled deliveries to terminals, files and databases.
package sink

import (
	"errors"
	"io"
	"time"
)

// Record is one handled delivery as the aggregator logged it.
type Record struct {
	RunID     string    `json:"run_id"`
	At        time.Time `json:"at"`
	Source    int       `json:"source"`
	Dest      int       `json:"dest"`
	ElapsedMS int64     `json:"elapsed_ms"`
	RandomTag string    `json:"random_tag,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	Line      string    `json:"line"`
	Malformed bool      `json:"malformed"`
	Raw       string    `json:"raw"`
}

// Writer receives records one at a time, always from a single goroutine.
type Writer interface {
	WriteRecord(Record) error
}

// MultiWriter fans records out to several writers.
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteRecord stops at the first failing writer.
func (m *MultiWriter) WriteRecord(r Record) error {
	for _, w := range m.writers {
		if err := w.WriteRecord(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer that is an io.Closer and joins their errors.
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
