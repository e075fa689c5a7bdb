// Command recitefixture runs one MP3 recitation fixture through the
// alignment pipeline end to end and prints the matched report,
// optionally dumping the audio of any segment flagged with missing
// words so a reviewer can listen to exactly what went wrong.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"quranalign/internal/acoustic"
	"quranalign/internal/align"
	"quranalign/internal/asrdriver"
	"quranalign/internal/mp3io"
	"quranalign/internal/refstore"
)

const sampleRate = 16000

func main() {
	mp3Path := flag.String("audio", "", "path to the MP3 fixture")
	dataDir := flag.String("data", "data/quran", "reference data directory")
	vadModel := flag.String("vad-model", "models/vad.onnx", "path to the ONNX VAD model")
	asrModel := flag.String("asr-model", "models/phoneme_ctc.onnx", "path to the wav2vec2-CTC phoneme model")
	asrTokens := flag.String("asr-tokens", "models/phoneme_tokens.txt", "path to the phoneme tokens file")
	dumpDir := flag.String("dump-missing", "", "if set, export the audio of every missing-words segment as MP3 into this directory")
	flag.Parse()

	if *mp3Path == "" {
		log.Fatal("missing -audio")
	}

	waveform, err := mp3io.LoadMono(*mp3Path, sampleRate)
	if err != nil {
		log.Fatalf("failed to decode fixture: %v", err)
	}

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

	sp := align.SegmentationParams{MinSilenceMs: 300, MinSpeechMs: 200, PadMs: 100, AsrModel: *asrModel}
	report, err := pipeline.Align(context.Background(), waveform, sp)
	if err != nil {
		log.Fatalf("alignment failed: %v", err)
	}

	for i, seg := range report.Segments {
		fmt.Printf("[%6.2f-%6.2f] conf=%.2f missing=%v %s  %s\n",
			seg.StartTime, seg.EndTime, seg.Confidence, seg.HasMissingWords, seg.MatchedRef, seg.MatchedText)

		if seg.HasMissingWords && *dumpDir != "" {
			if err := dumpSegment(waveform, seg, i, *dumpDir); err != nil {
				log.Printf("failed to dump segment %d: %v", i, err)
			}
		}
	}
	for _, w := range report.Warnings {
		fmt.Println("warning:", w)
	}
}

func dumpSegment(waveform []float32, seg align.SegmentOutput, index int, dir string) error {
	start := int(seg.StartTime * sampleRate)
	end := int(seg.EndTime * sampleRate)
	if start < 0 {
		start = 0
	}
	if end > len(waveform) {
		end = len(waveform)
	}
	if start >= end {
		return fmt.Errorf("empty segment range")
	}

	w, err := mp3io.NewWriter(filepath.Join(dir, fmt.Sprintf("missing_%03d.mp3", index)), sampleRate)
	if err != nil {
		return err
	}
	if err := w.Write(waveform[start:end]); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
