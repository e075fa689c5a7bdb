// Package config holds the aligner's startup configuration, parsed
// once from flags into a struct threaded down through the pipeline:
// the reference-data directory, acoustic model paths, and VAD
// cleaning thresholds this service needs at boot.
package config

import (
	"flag"
	"runtime"
)

type Config struct {
	DataDir  string // reference data: chapter cache, n-gram index, scripts, sub-cost JSON
	GRPCAddr string
	Port     string // WebSocket progress-stream port

	VadModelPath     string
	PhonemeAsrModel  string
	PhonemeAsrTokens string

	MinSilenceMs int
	MinSpeechMs  int
	PadMs        int

	Profiling bool
}

func Load() *Config {
	dataDir := flag.String("data", "data/quran", "Directory holding the chapter cache, n-gram index, scripts and substitution-cost JSON")
	grpcAddr := flag.String("grpc-addr", defaultGRPCAddress(), "gRPC listen address (unix:/path/to.sock or npipe:////./pipe/quranalign-grpc)")
	port := flag.String("port", "8090", "WebSocket progress-stream port")

	vadModel := flag.String("vad-model", "models/vad.onnx", "Path to the ONNX VAD frame-classifier model")
	asrModel := flag.String("asr-model", "models/phoneme_ctc.onnx", "Path to the wav2vec2-CTC phoneme ASR model")
	asrTokens := flag.String("asr-tokens", "models/phoneme_tokens.txt", "Path to the phoneme ASR tokens file")

	minSilenceMs := flag.Int("min-silence-ms", 300, "VAD cleaner: minimum silence gap before a split")
	minSpeechMs := flag.Int("min-speech-ms", 200, "VAD cleaner: minimum retained speech interval length")
	padMs := flag.Int("pad-ms", 100, "VAD cleaner: symmetric padding applied to retained intervals")

	profiling := flag.Bool("profiling", false, "Collect per-run alignment profiling counters")

	flag.Parse()

	return &Config{
		DataDir:          *dataDir,
		GRPCAddr:         *grpcAddr,
		Port:             *port,
		VadModelPath:     *vadModel,
		PhonemeAsrModel:  *asrModel,
		PhonemeAsrTokens: *asrTokens,
		MinSilenceMs:     *minSilenceMs,
		MinSpeechMs:      *minSpeechMs,
		PadMs:            *padMs,
		Profiling:        *profiling,
	}
}

func defaultGRPCAddress() string {
	if runtime.GOOS == "windows" {
		return "npipe:\\\\.\\pipe\\quranalign-grpc"
	}
	return "unix:/tmp/quranalign-grpc.sock"
}
