// Command reciteliveprobe captures a short recitation from the
// default microphone via miniaudio (malgo) and runs it straight
// through the alignment pipeline, printing the matched references as
// they land — a manual smoke-test harness, not part of the core
// pipeline.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"

	"quranalign/internal/acoustic"
	"quranalign/internal/align"
	"quranalign/internal/asrdriver"
	"quranalign/internal/refstore"
)

const sampleRate = 16000

func main() {
	dataDir := flag.String("data", "data/quran", "reference data directory")
	vadModel := flag.String("vad-model", "models/vad.onnx", "path to the ONNX VAD model")
	asrModel := flag.String("asr-model", "models/phoneme_ctc.onnx", "path to the wav2vec2-CTC phoneme model")
	asrTokens := flag.String("asr-tokens", "models/phoneme_tokens.txt", "path to the phoneme tokens file")
	flag.Parse()

	chapters, err := refstore.LoadChapterCache(filepath.Join(*dataDir, "chapters.gob"))
	if err != nil {
		log.Fatalf("failed to load chapter cache: %v", err)
	}
	ngramIdx, err := refstore.LoadNgramCache(filepath.Join(*dataDir, "ngrams.gob"))
	if err != nil || ngramIdx == nil {
		ngramIdx = refstore.BuildNgramIndex(chapters, 3)
	}
	subCost, err := refstore.LoadSubCostJSON(filepath.Join(*dataDir, "subcost.json"), 1.0)
	if err != nil {
		subCost = refstore.NewSubCostTable(1.0)
	}
	store := refstore.New(chapters, ngramIdx, subCost, nil, nil)

	vad, err := acoustic.NewOnnxVAD(acoustic.OnnxVADConfig{ModelPath: *vadModel, SampleRate: sampleRate, Threshold: 0.5})
	if err != nil {
		log.Fatalf("failed to load VAD model: %v", err)
	}
	asr, err := acoustic.NewOnnxPhonemeASR(acoustic.OnnxPhonemeASRConfig{ModelPath: *asrModel, TokensPath: *asrTokens, NumThreads: 1, Provider: "cpu"})
	if err != nil {
		log.Fatalf("failed to load phoneme ASR model: %v", err)
	}

	pipeline := &align.Pipeline{
		Store:      store,
		Vad:        vad,
		Asr:        asr,
		SampleRate: sampleRate,
		Batch:      asrdriver.BatchParams{MaxBatchSeconds: 30, MaxPadWaste: 0.3, MinBatchSize: 1},
		Params:     align.DefaultParams(),
	}

	waveform, err := captureUntilInterrupt()
	if err != nil {
		log.Fatalf("capture failed: %v", err)
	}
	log.Printf("captured %.1fs of audio, running alignment...", float64(len(waveform))/sampleRate)

	sp := align.SegmentationParams{MinSilenceMs: 300, MinSpeechMs: 200, PadMs: 100, AsrModel: *asrModel}
	report, err := pipeline.Align(context.Background(), waveform, sp)
	if err != nil {
		log.Fatalf("alignment failed: %v", err)
	}

	for _, seg := range report.Segments {
		log.Printf("[%6.2f-%6.2f] %s (conf=%.2f) %s", seg.StartTime, seg.EndTime, seg.MatchedRef, seg.Confidence, seg.MatchedText)
	}
	for _, w := range report.Warnings {
		log.Printf("warning: %s", w)
	}
}

// captureUntilInterrupt records mono 16kHz PCM from the default input
// device until SIGINT/SIGTERM, returning the accumulated waveform.
func captureUntilInterrupt() ([]float32, error) {
	mCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) { log.Print(msg) })
	if err != nil {
		return nil, err
	}
	defer func() { _ = mCtx.Uninit(); mCtx.Free() }()

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.SampleRate = sampleRate
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = 1

	var waveform []float32
	callbacks := malgo.DeviceCallbacks{
		Data: func(_ []byte, raw []byte, _ uint32) {
			n := len(raw) / 2
			for i := 0; i < n; i++ {
				s := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
				waveform = append(waveform, float32(s)/32768.0)
			}
		},
	}

	device, err := malgo.InitDevice(mCtx.Context, devCfg, callbacks)
	if err != nil {
		return nil, err
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return nil, err
	}
	defer device.Stop()

	log.Println("recording... press Ctrl+C to stop and align")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	time.Sleep(100 * time.Millisecond)
	return waveform, nil
}
