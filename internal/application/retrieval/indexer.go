package retrieval

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"biocup-api/internal/application/pipeline"
	"biocup-api/internal/config"
	"biocup-api/internal/domain/entity"
	"biocup-api/pkg/logger"
	"biocup-api/pkg/metrics"
)

// pointNamespace seeds deterministic uuid5 point ids, so re-indexing a
// report overwrites its previous points instead of duplicating them.
var pointNamespace = uuid.MustParse("8f1c2a54-6d0b-5e3f-9a71-04c2b6d85e19")

// Indexer turns a pathology report into indexed hybrid points: normalize,
// chunk, tag, encode both modalities in batches, then replace the case's
// points in the vector index.
type Indexer struct {
	normalizer *pipeline.Normalizer
	chunker    *pipeline.Chunker
	tagger     *pipeline.Tagger

	dense  DenseEncoder
	sparse SparseEncoder
	index  VectorIndex

	batchSize int
	workers   int
}

// NewIndexer wires the chunking pipeline to the encoders and the index.
func NewIndexer(dense DenseEncoder, sparse SparseEncoder, index VectorIndex, cfg config.Config) *Indexer {
	batch := cfg.Encoder.Dense.BatchSize
	if s := cfg.Encoder.Sparse.BatchSize; s > 0 && (batch <= 0 || s < batch) {
		batch = s
	}
	if batch <= 0 {
		batch = 16
	}
	workers := cfg.Pipeline.IndexWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Indexer{
		normalizer: pipeline.NewNormalizer(),
		chunker:    pipeline.NewChunker(cfg.Pipeline.MinChunkChars),
		tagger:     pipeline.NewTagger(),
		dense:      dense,
		sparse:     sparse,
		index:      index,
		batchSize:  batch,
		workers:    workers,
	}
}

// Prepare runs the deterministic text pipeline on one report and returns
// its tagged chunks. Exposed separately because the diagnose path needs
// chunks without indexing them.
func (ix *Indexer) Prepare(report *entity.PathologyReport) ([]*entity.SemanticChunk, error) {
	normalized, err := ix.normalizer.Normalize(report.RawText)
	if err != nil {
		return nil, err
	}
	chunks := ix.chunker.Chunk(report.ID, normalized)
	ix.tagger.TagChunks(chunks)
	return chunks, nil
}

// IndexReport chunks, encodes and stores one report. Existing points for
// the same case are removed first so revisions fully supersede each other.
func (ix *Indexer) IndexReport(ctx context.Context, report *entity.PathologyReport) (int, error) {
	chunks, err := ix.Prepare(report)
	if err != nil {
		metrics.ReportsIndexedTotal.WithLabelValues("failed").Inc()
		return 0, err
	}

	points, err := ix.encodePoints(ctx, report, chunks)
	if err != nil {
		metrics.ReportsIndexedTotal.WithLabelValues("failed").Inc()
		return 0, err
	}

	if err := ix.index.DeleteByCase(ctx, report.CaseID); err != nil {
		metrics.ReportsIndexedTotal.WithLabelValues("failed").Inc()
		return 0, ErrIndexUnavailable.WithError(err)
	}
	if err := ix.index.Upsert(ctx, points); err != nil {
		metrics.ReportsIndexedTotal.WithLabelValues("failed").Inc()
		return 0, ErrIndexUnavailable.WithError(err)
	}

	metrics.ReportsIndexedTotal.WithLabelValues("ok").Inc()
	metrics.ChunksPerReport.Observe(float64(len(chunks)))
	logger.Info(ctx, "report indexed",
		"report_id", report.ID, "case_id", report.CaseID, "chunks", len(chunks))
	return len(chunks), nil
}

// IndexReports indexes a batch with a bounded worker pool. Per-report
// failures are logged and counted, they do not abort the batch.
func (ix *Indexer) IndexReports(ctx context.Context, reports []*entity.PathologyReport) (indexed, failed int, err error) {
	results := make([]error, len(reports))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for i, report := range reports {
		g.Go(func() error {
			if _, rerr := ix.IndexReport(gctx, report); rerr != nil {
				logger.Warn(gctx, "report indexing failed",
					"report_id", report.ID, "case_id", report.CaseID, "error", rerr.Error())
				results[i] = rerr
			}
			return nil
		})
	}
	if werr := g.Wait(); werr != nil {
		return 0, 0, werr
	}

	for _, rerr := range results {
		if rerr != nil {
			failed++
		} else {
			indexed++
		}
	}
	return indexed, failed, nil
}

// encodePoints runs both encoders over the chunk texts in batches and
// assembles the dual-vector points.
func (ix *Indexer) encodePoints(ctx context.Context, report *entity.PathologyReport, chunks []*entity.SemanticChunk) ([]Point, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	denseVecs := make([][]float32, 0, len(texts))
	sparseVecs := make([]SparseVector, 0, len(texts))
	for start := 0; start < len(texts); start += ix.batchSize {
		end := min(start+ix.batchSize, len(texts))

		dv, err := ix.dense.EncodeDense(ctx, texts[start:end])
		if err != nil {
			return nil, ErrEncoderUnavailable.WithError(err)
		}
		sv, err := ix.sparse.EncodeSparse(ctx, texts[start:end])
		if err != nil {
			return nil, ErrEncoderUnavailable.WithError(err)
		}
		if len(dv) != end-start || len(sv) != end-start {
			return nil, ErrEncoderUnavailable.WithDetail("encoder returned mismatched batch size")
		}
		denseVecs = append(denseVecs, dv...)
		sparseVecs = append(sparseVecs, sv...)
	}

	version := ix.dense.Version() + "+" + ix.sparse.Version()
	points := make([]Point, len(chunks))
	for i, c := range chunks {
		points[i] = Point{
			ID:     PointID(c.ID),
			Dense:  denseVecs[i],
			Sparse: sparseVecs[i],
			Payload: ChunkPayload{
				ChunkID:        c.ID,
				CaseID:         report.CaseID,
				PatientID:      report.PatientID,
				PrimarySite:    report.PrimarySite,
				CancerType:     report.CancerType,
				CancerSubtype:  report.CancerSubtype,
				Section:        c.Section,
				Flags:          c.Flags,
				EncoderVersion: version,
				Text:           c.Text,
			},
		}
	}
	return points, nil
}

// PointID derives the stable vector-store id for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}
