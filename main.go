package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/mantravadi/granthalaya/answer"
	"github.com/mantravadi/granthalaya/extract"
	"github.com/mantravadi/granthalaya/index"
	"github.com/mantravadi/granthalaya/pipeline"
	"github.com/mantravadi/granthalaya/providers"
	"github.com/mantravadi/granthalaya/recordstore"
	"github.com/mark3labs/mcp-go/server"
)

func createOCR(cfg *Config) (extract.Recognizer, error) {
	switch cfg.OCR.Mode {
	case "tesseract":
		return providers.NewTesseract(cfg.OCR.Languages...), nil
	case "remote":
		if cfg.OCR.Endpoint == "" {
			return nil, errors.New("remote OCR requires an endpoint")
		}
		return providers.NewRemoteOCR(cfg.OCR.Endpoint, 0), nil
	}

	return nil, fmt.Errorf("unknown OCR mode: %s", cfg.OCR.Mode)
}

func createIndex(ctx context.Context, cfg *Config, embedder index.Embedder, reset bool) (index.Index, error) {
	switch cfg.Index.Backend {
	case "memory":
		return index.NewMemory(embedder), nil
	case "chroma":
		idx, err := index.NewChroma(ctx, index.ChromaConfig{
			BaseURL:    cfg.Index.ChromaAddr,
			Collection: cfg.Index.Collection,
			Embedder:   embedder,
			Reset:      reset,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Chroma index: %w", err)
		}
		return idx, nil
	}

	return nil, fmt.Errorf("unknown index backend: %s", cfg.Index.Backend)
}

func main() {
	reset := flag.Bool("reset", false, "Reinitialize the index from scratch if set")
	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file for the corpus server")
	flag.Parse()

	cfg, err := readConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file: %s", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(logFile, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gemini, err := providers.NewGemini(ctx, cfg.Gemini.ApiKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel)
	if err != nil {
		log.Fatal(err)
	}
	defer gemini.Close()

	ocr, err := createOCR(cfg)
	if err != nil {
		log.Fatal(err)
	}

	idx, err := createIndex(ctx, cfg, gemini, *reset)
	if err != nil {
		log.Fatal(err)
	}
	if err := idx.Initialize(ctx); err != nil {
		log.Fatal(err)
	}

	records, err := recordstore.Open(cfg.RecordsDB)
	if err != nil {
		log.Fatal(err)
	}
	defer records.Close()

	chunker, err := pipeline.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal(err)
	}

	pipe := pipeline.New(logger,
		extract.NewExtractor(ocr),
		pipeline.NewCleaner(gemini),
		chunker,
		idx,
		records,
	)
	answerer := answer.New(logger, idx, gemini, cfg.Results)

	if cfg.CorpusRoot != "" {
		reg := &CorpusRegistry{
			log:              logger,
			root:             cfg.CorpusRoot,
			mergeEventsDelay: time.Duration(cfg.MergeEventsMs) * time.Millisecond,
			pipeline:         pipe,
			index:            idx,
			records:          records,
		}

		go func() {
			if err := reg.Sync(ctx); err != nil {
				log.Fatal(err)
			}
			if err := reg.Watch(ctx); err != nil {
				log.Fatal(err)
			}
		}()
	}

	srv := NewCorpusServer(answerer, pipe, records)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", cfg.ServerAddr)))
	log.Println(sse.Start(cfg.ServerAddr))
}
