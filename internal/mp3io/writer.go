package mp3io

import (
	"fmt"
	"os"
	"sync"

	"github.com/braheezy/shine-mp3/pkg/mp3"
)

// Writer streams mono float32 samples out as MP3 via shine-mp3,
// used by cmd/recitefixture to dump a matched segment's audio for
// manual review alongside its matched reference text.
type Writer struct {
	file       *os.File
	encoder    *mp3.Encoder
	sampleRate int

	buffer []int16
	mu     sync.Mutex
	closed bool
}

// NewWriter creates path for mono encoding at sampleRate.
func NewWriter(path string, sampleRate int) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create mp3: %w", err)
	}
	return &Writer{
		file:       file,
		encoder:    mp3.NewEncoder(sampleRate, 1),
		sampleRate: sampleRate,
		buffer:     make([]int16, 0, 8192),
	}, nil
}

// Write appends samples, flushing full Layer III frames as they
// accumulate (shine encodes in blocks of 1152 samples per channel).
func (w *Writer) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("mp3io: writer is closed")
	}

	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		w.buffer = append(w.buffer, int16(s*32767))
	}

	const blockSize = 1152 * 4
	if len(w.buffer) >= blockSize {
		full := len(w.buffer) - len(w.buffer)%1152
		w.encoder.Write(w.file, w.buffer[:full])
		w.buffer = append(w.buffer[:0], w.buffer[full:]...)
	}
	return nil
}

// Close flushes any remaining samples, zero-padded to a full block,
// and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if len(w.buffer) > 0 {
		for len(w.buffer)%1152 != 0 {
			w.buffer = append(w.buffer, 0)
		}
		w.encoder.Write(w.file, w.buffer)
	}
	return w.file.Close()
}
