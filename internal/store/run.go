package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// runRepo implements RunRepo backed by SQLite.
type runRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

const runColumns = `id, sequence, timestamp, run_id, document_id, source, question_type,
	providers, chunk_count, record_count, cached_chunks, failed_chunks, cancelled, duration_ms`

func (r *runRepo) AppendGenerationRun(ctx context.Context, data GenerationRunData) error {
	providers, err := json.Marshal(nonNil(data.Providers))
	if err != nil {
		return fmt.Errorf("marshal providers: %w", err)
	}
	failed, err := json.Marshal(nonNil(data.FailedChunks))
	if err != nil {
		return fmt.Errorf("marshal failed chunks: %w", err)
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO generation_runs (
		sequence, timestamp, run_id, document_id, source, question_type,
		providers, chunk_count, record_count, cached_chunks, failed_chunks, cancelled, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seqNum, time.Now().UnixMilli(), data.RunID, data.DocumentID, data.Source, data.QuestionType,
		string(providers), data.ChunkCount, data.RecordCount, data.CachedChunks, string(failed),
		data.Cancelled, data.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("save generation run: %w", err)
	}
	return nil
}

func (r *runRepo) QueryGenerationRuns(ctx context.Context, opts QueryOpts) ([]GenerationRunRecord, error) {
	opts.Purpose = ""
	where, args := opts.whereClause()
	query := "SELECT " + runColumns + " FROM generation_runs" + where + " ORDER BY sequence DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query generation runs: %w", err)
	}
	defer rows.Close()

	var records []GenerationRunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *runRepo) GetGenerationRun(ctx context.Context, runID string) (*GenerationRunRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM generation_runs WHERE run_id = ?", runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func scanRun(row rowScanner) (*GenerationRunRecord, error) {
	var rec GenerationRunRecord
	var ts int64
	var providers, failed string
	err := row.Scan(&rec.ID, &rec.Sequence, &ts, &rec.RunID, &rec.DocumentID, &rec.Source, &rec.QuestionType,
		&providers, &rec.ChunkCount, &rec.RecordCount, &rec.CachedChunks, &failed, &rec.Cancelled, &rec.DurationMs)
	if err != nil {
		return nil, fmt.Errorf("scan generation run: %w", err)
	}
	rec.Timestamp = time.UnixMilli(ts)
	if err := json.Unmarshal([]byte(providers), &rec.Providers); err != nil {
		return nil, fmt.Errorf("decode providers: %w", err)
	}
	if err := json.Unmarshal([]byte(failed), &rec.FailedChunks); err != nil {
		return nil, fmt.Errorf("decode failed chunks: %w", err)
	}
	return &rec, nil
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
