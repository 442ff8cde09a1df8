package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogFile       string `yaml:"log"`
	ServerAddr    string `yaml:"server_addr"`
	CorpusRoot    string `yaml:"corpus_root"`
	MergeEventsMs int    `yaml:"write_debounce_ms"`
	ChunkSize     int    `yaml:"chunk_size"`
	ChunkOverlap  int    `yaml:"chunk_overlap"`
	Results       int    `yaml:"results"`
	RecordsDB     string `yaml:"records_db"`
	Gemini        struct {
		ApiKey     string `yaml:"api_key"`
		Model      string `yaml:"model"`
		EmbedModel string `yaml:"embed_model"`
	} `yaml:"gemini"`
	OCR struct {
		Mode      string   `yaml:"mode"` // "tesseract" or "remote"
		Endpoint  string   `yaml:"endpoint"`
		Languages []string `yaml:"languages"`
	} `yaml:"ocr"`
	Index struct {
		Backend    string `yaml:"backend"` // "memory" or "chroma"
		ChromaAddr string `yaml:"chroma_addr"`
		Collection string `yaml:"collection"`
	} `yaml:"index"`
}

func readConfig(cfgPath string) (*Config, error) {
	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(cfgFile)
	err = dec.Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = 100
	}
	if cfg.Results == 0 {
		cfg.Results = 3
	}
	if cfg.MergeEventsMs == 0 {
		cfg.MergeEventsMs = 500
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = "localhost:8420"
	}
	if cfg.RecordsDB == "" {
		cfg.RecordsDB = "data/records.db"
	}
	if cfg.OCR.Mode == "" {
		cfg.OCR.Mode = "tesseract"
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "memory"
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "granthalaya"
	}
}
