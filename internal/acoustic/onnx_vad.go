// Package acoustic provides the concrete ONNX-backed adapters for the
// two acoustic backend interfaces the core treats as opaque:
// the VAD frame classifier and the wav2vec2-CTC phoneme ASR head.
package acoustic

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"quranalign/internal/vadclean"
)

// OnnxVADConfig configures the VAD frame classifier session.
type OnnxVADConfig struct {
	ModelPath  string
	SampleRate int
	Threshold  float32
}

// OnnxVAD wraps an ONNX frame-classifier session behind vadclean.Backend.
// One window of audio is scored per Run call; consecutive speech
// windows are coalesced into raw intervals before returning.
type OnnxVAD struct {
	session *ort.DynamicAdvancedSession
	config  OnnxVADConfig
	mu      sync.Mutex
}

// NewOnnxVAD loads the ONNX VAD model and returns a ready adapter.
func NewOnnxVAD(config OnnxVADConfig) (*OnnxVAD, error) {
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("vad model not found: %w", err)
	}
	if err := ort.InitializeEnvironment(); err != nil && !isAlreadyInitialized(err) {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		config.ModelPath,
		[]string{"input"},
		[]string{"output"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("create vad session: %w", err)
	}

	log.Printf("[ACOUSTIC] VAD session loaded: %s (sample_rate=%d, threshold=%.2f)",
		config.ModelPath, config.SampleRate, config.Threshold)
	return &OnnxVAD{session: session, config: config}, nil
}

// Segment implements vadclean.Backend: it scores the waveform in fixed
// windows and coalesces consecutive speech windows into raw intervals.
// The frame classifier's own probability semantics are opaque to the
// rest of the pipeline; only the resulting (start, end, complete) tuples
// cross the interface boundary.
func (v *OnnxVAD) Segment(ctx context.Context, waveform []float32, sampleRate int) ([]vadclean.RawInterval, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	windowSize := 512
	if sampleRate == 8000 {
		windowSize = 256
	}

	var intervals []vadclean.RawInterval
	var open *vadclean.RawInterval

	for start := 0; start < len(waveform); start += windowSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := start + windowSize
		chunk := make([]float32, windowSize)
		n := copy(chunk, waveform[start:min(end, len(waveform))])
		_ = n

		prob, err := v.runWindow(chunk)
		if err != nil {
			return nil, err
		}

		isSpeech := prob >= v.config.Threshold
		if isSpeech {
			if open == nil {
				open = &vadclean.RawInterval{StartSample: uint64(start)}
			}
			open.EndSample = uint64(min(end, len(waveform)))
		} else if open != nil {
			open.IsComplete = true
			intervals = append(intervals, *open)
			open = nil
		}
	}
	if open != nil {
		// Audio ended mid-speech: the interval was not bounded by a
		// detected silence, so it is reported incomplete.
		open.IsComplete = false
		intervals = append(intervals, *open)
	}
	return intervals, nil
}

func (v *OnnxVAD) runWindow(chunk []float32) (float32, error) {
	inputShape := ort.NewShape(1, int64(len(chunk)))
	inputTensor, err := ort.NewTensor(inputShape, chunk)
	if err != nil {
		return 0, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := v.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return 0, fmt.Errorf("run vad inference: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("unexpected vad output tensor type")
	}
	data := out.GetData()
	if len(data) == 0 {
		return 0, nil
	}
	return data[0], nil
}

// Close releases the underlying ONNX session.
func (v *OnnxVAD) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.Destroy()
}

func isAlreadyInitialized(err error) bool {
	return err != nil && err.Error() == "onnxruntime has already been initialized"
}
