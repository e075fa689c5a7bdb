package acoustic

import (
	"context"
	"fmt"
	"log"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"quranalign/internal/phoneme"
)

// OnnxPhonemeASRConfig configures the wav2vec2-CTC phoneme recognizer.
type OnnxPhonemeASRConfig struct {
	ModelPath  string
	TokensPath string
	NumThreads int
	Provider   string
	BlankToken phoneme.Phoneme
}

// OnnxPhonemeASR wraps a sherpa-onnx offline recognizer configured with
// a CTC phoneme model, behind asrdriver.AsrBackend. Sherpa's own
// decoding already performs CTC collapse, so TranscribeBatch returns
// phonemes directly without a second pass through
// asrdriver.CollapseCTC.
type OnnxPhonemeASR struct {
	recognizer *sherpa.OfflineRecognizer
	config     OnnxPhonemeASRConfig
	mu         sync.Mutex
}

// NewOnnxPhonemeASR loads the offline CTC recognizer.
func NewOnnxPhonemeASR(config OnnxPhonemeASRConfig) (*OnnxPhonemeASR, error) {
	recConfig := sherpa.OfflineRecognizerConfig{}
	recConfig.FeatConfig = sherpa.FeatureConfig{SampleRate: 16000, FeatureDim: 80}
	recConfig.ModelConfig.Tokens = config.TokensPath
	recConfig.ModelConfig.NumThreads = config.NumThreads
	recConfig.ModelConfig.Provider = config.Provider
	recConfig.ModelConfig.Transducer.Encoder = ""
	recConfig.ModelConfig.Wav2Vec2Ctc = config.ModelPath
	recConfig.DecodingMethod = "greedy_search"

	recognizer := sherpa.NewOfflineRecognizer(&recConfig)
	if recognizer == nil {
		return nil, fmt.Errorf("failed to create offline phoneme recognizer from %s", config.ModelPath)
	}

	log.Printf("[ACOUSTIC] phoneme ASR session loaded: %s", config.ModelPath)
	return &OnnxPhonemeASR{recognizer: recognizer, config: config}, nil
}

// TranscribeBatch implements asrdriver.AsrBackend.
func (a *OnnxPhonemeASR) TranscribeBatch(ctx context.Context, clips [][]float32) ([][]phoneme.Phoneme, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	results := make([][]phoneme.Phoneme, len(clips))
	for i, clip := range clips {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		stream := sherpa.NewOfflineStream(a.recognizer)
		stream.AcceptWaveform(16000, clip)
		a.recognizer.Decode(stream)
		result := stream.GetResult()
		stream.Delete()

		results[i] = tokensToPhonemes(result.Tokens, a.config.BlankToken)
	}
	return results, nil
}

func tokensToPhonemes(tokens []string, blank phoneme.Phoneme) []phoneme.Phoneme {
	out := make([]phoneme.Phoneme, 0, len(tokens))
	for _, t := range tokens {
		p := phoneme.Phoneme(t)
		if p == blank || p == "|" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Close releases the recognizer.
func (a *OnnxPhonemeASR) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recognizer.Delete()
	return nil
}
