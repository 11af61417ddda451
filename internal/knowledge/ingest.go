// Package knowledge turns career-guidance PDFs into embedded chunks.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"asha/internal/logging"
)

// ErrNoDocuments is returned when a directory yields no text to ingest.
var ErrNoDocuments = errors.New("knowledge: no documents to ingest")

// Sink receives chunks. *store.VectorStore satisfies it. ReplaceSource must
// leave the previous chunks of source in place when it fails.
type Sink interface {
	ReplaceSource(ctx context.Context, source string, texts []string, metas []map[string]string) ([]int64, error)
	DeleteSource(ctx context.Context, source string) (int64, error)
}

// IngestResult summarizes an ingest run.
type IngestResult struct {
	Files  int `json:"files"`
	Chunks int `json:"chunks"`
}

// Ingester loads, splits and stores PDFs.
type Ingester struct {
	splitter *Splitter
	sink     Sink
}

// NewIngester creates an Ingester writing into sink.
func NewIngester(splitter *Splitter, sink Sink) *Ingester {
	return &Ingester{splitter: splitter, sink: sink}
}

// IngestDir ingests every PDF in dir. It returns ErrNoDocuments when nothing
// produced a chunk.
func (in *Ingester) IngestDir(ctx context.Context, dir string) (IngestResult, error) {
	timer := logging.StartTimer(logging.CategoryKnowledge, "IngestDir")
	defer timer.Stop()

	files, err := LoadDir(dir)
	if err != nil {
		return IngestResult{}, err
	}

	var res IngestResult
	for _, lf := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := in.store(ctx, lf)
		if err != nil {
			return res, err
		}
		if n > 0 {
			res.Files++
			res.Chunks += n
		}
	}

	if res.Chunks == 0 {
		return res, fmt.Errorf("%w in %s", ErrNoDocuments, dir)
	}
	logging.Knowledge("Ingested %d chunks from %d PDFs in %s", res.Chunks, res.Files, dir)
	return res, nil
}

// IngestFile (re)ingests a single PDF, replacing its previous chunks.
func (in *Ingester) IngestFile(ctx context.Context, path string) (int, error) {
	lf, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	return in.store(ctx, lf)
}

// Remove deletes the chunks recorded for a PDF file name.
func (in *Ingester) Remove(ctx context.Context, source string) error {
	n, err := in.sink.DeleteSource(ctx, source)
	if err != nil {
		return err
	}
	logging.Knowledge("Removed %d chunks for %s", n, source)
	return nil
}

func (in *Ingester) store(ctx context.Context, lf *LoadedFile) (int, error) {
	return in.storeText(ctx, lf.Name, lf.Text)
}

func (in *Ingester) storeText(ctx context.Context, source, text string) (int, error) {
	chunks, err := in.splitter.Split(text)
	if err != nil {
		return 0, fmt.Errorf("failed to split %s: %w", source, err)
	}

	metas := make([]map[string]string, len(chunks))
	for i := range chunks {
		metas[i] = map[string]string{
			"source": source,
			"chunk":  strconv.Itoa(i),
		}
	}
	if _, err := in.sink.ReplaceSource(ctx, source, chunks, metas); err != nil {
		return 0, fmt.Errorf("failed to store chunks for %s: %w", source, err)
	}
	if len(chunks) == 0 {
		logging.Get(logging.CategoryKnowledge).Warn("%s has no extractable text", source)
		return 0, nil
	}
	logging.KnowledgeDebug("Stored %d chunks for %s", len(chunks), source)
	return len(chunks), nil
}
