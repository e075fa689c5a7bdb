// Package mp3io decodes and encodes MP3 recitation fixtures in pure
// Go, for mono waveform fixtures rather than stereo mic/system-audio
// mixing.
package mp3io

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// Reader decodes an MP3 file into a mono float32 waveform.
type Reader struct {
	decoder    *mp3.Decoder
	file       *os.File
	sampleRate int
	length     int64
}

// NewReader opens path for decoding.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}
	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	return &Reader{decoder: decoder, file: file, sampleRate: decoder.SampleRate(), length: decoder.Length()}, nil
}

func (r *Reader) SampleRate() int { return r.sampleRate }

// ReadAllMono reads the whole file and averages the stereo channels
// go-mp3 always decodes, at the file's native sample rate.
func (r *Reader) ReadAllMono() ([]float32, error) {
	pcm := make([]byte, r.length)
	n, err := io.ReadFull(r.decoder, pcm)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read mp3 pcm: %w", err)
	}
	pcm = pcm[:n]

	numSamples := n / 4 // 16-bit stereo
	mono := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		left := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		right := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		mono[i] = (float32(left) + float32(right)) / 2.0 / 32768.0
	}
	return mono, nil
}

func (r *Reader) Close() error { return r.file.Close() }

// Resample linearly interpolates mono samples from srcRate to dstRate.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate {
		return samples
	}
	ratio := float64(srcRate) / float64(dstRate)
	out := make([]float32, int(float64(len(samples))/ratio))
	for i := range out {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))
		switch {
		case srcIdx+1 < len(samples):
			out[i] = samples[srcIdx]*(1-frac) + samples[srcIdx+1]*frac
		case srcIdx < len(samples):
			out[i] = samples[srcIdx]
		}
	}
	return out
}

// LoadMono reads path and resamples it to targetRate in one call.
func LoadMono(path string, targetRate int) ([]float32, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	mono, err := r.ReadAllMono()
	if err != nil {
		return nil, err
	}
	return Resample(mono, r.SampleRate(), targetRate), nil
}
