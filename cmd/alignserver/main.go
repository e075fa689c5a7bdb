// Command alignserver loads the reference Qur'an data and acoustic
// models, then serves the alignment pipeline over gRPC and WebSocket.
package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"quranalign/internal/acoustic"
	"quranalign/internal/align"
	"quranalign/internal/api"
	"quranalign/internal/asrdriver"
	"quranalign/internal/config"
	"quranalign/internal/refstore"
	"quranalign/internal/vadclean"
)

const sampleRate = 16000

func main() {
	cfg := config.Load()

	store, wordCounts := loadReferenceData(cfg.DataDir)

	vad, err := acoustic.NewOnnxVAD(acoustic.OnnxVADConfig{
		ModelPath:  cfg.VadModelPath,
		SampleRate: sampleRate,
		Threshold:  0.5,
	})
	if err != nil {
		log.Fatalf("failed to load VAD model: %v", err)
	}

	asr, err := acoustic.NewOnnxPhonemeASR(acoustic.OnnxPhonemeASRConfig{
		ModelPath:  cfg.PhonemeAsrModel,
		TokensPath: cfg.PhonemeAsrTokens,
		NumThreads: 1,
		Provider:   "cpu",
	})
	if err != nil {
		log.Fatalf("failed to load phoneme ASR model: %v", err)
	}

	params := align.DefaultParams()
	params.Profiling = cfg.Profiling

	pipeline := &align.Pipeline{
		Store:      store,
		Vad:        vad,
		Asr:        asr,
		SampleRate: sampleRate,
		Batch:      asrdriver.BatchParams{MaxBatchSeconds: 30, MaxPadWaste: 0.3, MinBatchSize: 1},
		Params:     params,
	}

	validateWordCounts(store, wordCounts)

	defaults := align.SegmentationParams{
		MinSilenceMs: cfg.MinSilenceMs,
		MinSpeechMs:  cfg.MinSpeechMs,
		PadMs:        cfg.PadMs,
		AsrModel:     cfg.PhonemeAsrModel,
	}
	server := api.NewServer(pipeline, loadWAV, cfg.Port, cfg.GRPCAddr, defaults)
	log.Println("starting quranalign alignment service...")
	if err := server.Start(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func loadReferenceData(dataDir string) (*refstore.Store, *refstore.WordCountTable) {
	chapters, err := refstore.LoadChapterCache(filepath.Join(dataDir, "chapters.gob"))
	if err != nil {
		log.Fatalf("failed to load chapter cache: %v", err)
	}
	ngramIdx, err := refstore.LoadNgramCache(filepath.Join(dataDir, "ngrams.gob"))
	if err != nil || ngramIdx == nil {
		log.Printf("no precomputed n-gram cache, rebuilding from %d cached chapters", len(chapters))
		ngramIdx = refstore.BuildNgramIndex(chapters, 3)
	}
	subCost, err := refstore.LoadSubCostJSON(filepath.Join(dataDir, "subcost.json"), 1.0)
	if err != nil {
		log.Printf("no substitution-cost table found, falling back to uniform cost: %v", err)
		subCost = refstore.NewSubCostTable(1.0)
	}
	scripts, err := refstore.LoadScripts(
		filepath.Join(dataDir, "script_compute.json"),
		filepath.Join(dataDir, "script_display.json"),
	)
	if err != nil {
		log.Printf("no script store found, on-demand chapter construction disabled: %v", err)
	}
	wordCounts, err := refstore.LoadWordCountTable(filepath.Join(dataDir, "word_counts.json"))
	if err != nil {
		log.Printf("no word-count table found: %v", err)
	}

	store := refstore.New(chapters, ngramIdx, subCost, scripts, nil)
	return store, wordCounts
}

// validateWordCounts cross-checks every precomputed chapter against
// the published per-ayah word counts, logging a warning for any
// mismatch instead of failing startup — a corrupt cache entry should
// not take down chapters that are fine.
func validateWordCounts(store *refstore.Store, wordCounts *refstore.WordCountTable) {
	if wordCounts == nil {
		return
	}
	for surah := uint8(1); surah <= 114; surah++ {
		ref, err := store.Chapter(surah)
		if err != nil {
			continue
		}
		counts := make(map[uint16]uint16)
		for _, w := range ref.Words {
			counts[w.Ayah]++
		}
		for ayah, got := range counts {
			if want := wordCounts.NumWords(surah, ayah); want != 0 && want != got {
				log.Printf("word count mismatch %d:%d: cache has %d words, table expects %d", surah, ayah, got, want)
			}
		}
	}
}

// loadWAV reads a 16-bit PCM mono WAV file into a float32 waveform.
// Callers that need MP3 decoding go through cmd/recitefixture instead.
func loadWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return nil, err
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%s: not a RIFF/WAVE file", path)
	}

	var dataSize uint32
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(f, hdr[:]); err != nil {
			return nil, fmt.Errorf("%s: no data chunk found", path)
		}
		chunkID := string(hdr[0:4])
		chunkSize := binary.LittleEndian.Uint32(hdr[4:8])
		if chunkID == "data" {
			dataSize = chunkSize
			break
		}
		if _, err := f.Seek(int64(chunkSize), 1); err != nil {
			return nil, err
		}
	}

	raw := make([]byte, dataSize)
	if _, err := io.ReadFull(f, raw); err != nil {
		return nil, err
	}
	samples := make([]float32, len(raw)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float32(s) / 32768.0
	}
	return samples, nil
}
