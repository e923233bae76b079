// Package log writes per-tick reports as zstd-compressed JSONL, one
// file per run, for offline inspection and replay.
package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"dronegrid/internal/protocol"
)

type TickWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewTickWriter(path string) (*TickWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &TickWriter{f: f, enc: enc, w: bufio.NewWriter(enc)}, nil
}

// WriteTick appends one report as a JSON line.
func (t *TickWriter) WriteTick(report protocol.TickReport) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := json.Marshal(report)
	if err != nil {
		return err
	}
	if _, err := t.w.Write(b); err != nil {
		return err
	}
	return t.w.WriteByte('\n')
}

func (t *TickWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.w.Flush(); err != nil {
		return err
	}
	if err := t.enc.Close(); err != nil {
		return err
	}
	return t.f.Close()
}
