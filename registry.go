package main

import (
	"context"
	"fmt"
	"hash/crc32"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mantravadi/granthalaya/corpus"
	"github.com/mantravadi/granthalaya/pipeline"
	"github.com/mantravadi/granthalaya/readers"
	"github.com/mantravadi/granthalaya/recordstore"
)

type ingester interface {
	Ingest(ctx context.Context, doc corpus.Document, meta corpus.Metadata) (pipeline.Receipt, error)
}

type recordRemover interface {
	RemoveRecord(ctx context.Context, recordID string) (int, error)
}

type fileStateStore interface {
	IngestedFiles(ctx context.Context) ([]recordstore.FileState, error)
	SetFileState(ctx context.Context, recordID, filename string, crc uint32) error
	Delete(ctx context.Context, recordID string) error
}

// CorpusRegistry keeps a corpus directory and the index in step: files that
// appear or change are ingested, files that vanish are forgotten.
type CorpusRegistry struct {
	log              *slog.Logger
	root             string
	mergeEventsDelay time.Duration
	pipeline         ingester
	index            recordRemover
	records          fileStateStore
}

type diskFile struct {
	File string
	Crc  uint32
}

// Sync walks the corpus root once and reconciles it against the archive:
// new and changed files are ingested as fresh records, removed files have
// their chunks and archive rows deleted.
func (r *CorpusRegistry) Sync(ctx context.Context) error {
	disk, err := r.collectFiles()
	if err != nil {
		return err
	}

	diskMap := make(map[string]diskFile, len(disk))
	for _, d := range disk {
		diskMap[d.File] = d
	}

	db, err := r.records.IngestedFiles(ctx)
	if err != nil {
		return err
	}

	dbMap := make(map[string]recordstore.FileState, len(db))
	for _, f := range db {
		dbMap[f.Filename] = f
	}

	if err := r.ingestNewFiles(ctx, diskMap, dbMap); err != nil {
		return err
	}

	return r.forgetRemovedFiles(ctx, diskMap, dbMap)
}

func (r *CorpusRegistry) collectFiles() (files []diskFile, err error) {
	err = filepath.Walk(r.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !readers.Supported(path) {
			r.log.Warn(fmt.Sprintf("unsupported file: %s", path))
			return nil
		}

		buf, e := os.ReadFile(path)
		if e != nil {
			return e
		}

		files = append(files, diskFile{
			File: path,
			Crc:  crc32.Checksum(buf, crc32.IEEETable),
		})
		return nil
	})
	return
}

func (r *CorpusRegistry) ingestNewFiles(ctx context.Context, disk map[string]diskFile, db map[string]recordstore.FileState) error {
	for _, d := range disk {
		prev, ok := db[d.File]
		if ok && prev.Crc == d.Crc {
			continue
		}
		if ok {
			// Changed file: re-ingestion creates a new record, so the old
			// one's chunks have to go first.
			if err := r.forget(ctx, prev); err != nil {
				return err
			}
		}

		doc, err := readers.Resolve(d.File)
		if err != nil {
			r.log.Warn("skipping unreadable file", "file", d.File, "error", err)
			continue
		}

		receipt, err := r.pipeline.Ingest(ctx, doc, corpus.Metadata{
			Title:    titleFromPath(d.File),
			Filename: d.File,
		})
		if err != nil {
			r.log.Error("failed to ingest file", "file", d.File, "error", err)
			continue
		}

		if err := r.records.SetFileState(ctx, receipt.RecordID, d.File, d.Crc); err != nil {
			return fmt.Errorf("recording file state for %s: %w", d.File, err)
		}

		r.log.Info("ingested corpus file",
			"file", d.File, "record_id", receipt.RecordID, "chunks", receipt.ChunkCount)
	}

	return nil
}

func (r *CorpusRegistry) forgetRemovedFiles(ctx context.Context, disk map[string]diskFile, db map[string]recordstore.FileState) error {
	for _, f := range db {
		if _, ok := disk[f.Filename]; ok {
			continue
		}
		if err := r.forget(ctx, f); err != nil {
			return err
		}

		r.log.Info("forgot removed corpus file", "file", f.Filename, "record_id", f.RecordID)
	}

	return nil
}

func (r *CorpusRegistry) forget(ctx context.Context, f recordstore.FileState) error {
	if _, err := r.index.RemoveRecord(ctx, f.RecordID); err != nil {
		return fmt.Errorf("removing chunks of %s: %w", f.Filename, err)
	}
	if err := r.records.Delete(ctx, f.RecordID); err != nil {
		return fmt.Errorf("removing archive row of %s: %w", f.Filename, err)
	}
	return nil
}

// Watch follows filesystem events under the corpus root and resyncs after a
// quiet period, so bursts of writes merge into one pass.
func (r *CorpusRegistry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating corpus watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.Walk(r.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watching corpus root: %w", err)
	}

	timer := time.NewTimer(r.mergeEventsDelay)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = watcher.Add(ev.Name)
				}
			}
			timer.Reset(r.mergeEventsDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Error("corpus watcher error", "error", err)

		case <-timer.C:
			if err := r.Sync(ctx); err != nil {
				r.log.Error("corpus sync failed", "error", err)
			}
		}
	}
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
