package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	"github.com/joseph-ayodele/lab-interpreter/internal/entity"
)

// RunRepository provides access to stored pipeline runs.
type RunRepository interface {
	Save(ctx context.Context, run *entity.Run) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.Run, error)
	ListByContentHash(ctx context.Context, hash string) ([]*entity.Run, error)
}

type runRepo struct {
	db     *DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepo{db: db, logger: logger}
}

// timeLayout is fixed width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const runColumns = `id, document_name, content_hash, format, extraction_method, extraction_confidence,
	risk_level, safety_trigger, stage, result_json, created_at`

func (r *runRepo) Save(ctx context.Context, run *entity.Run) error {
	if run == nil {
		return common.NewAppError(common.CodeInvalidInput, "run is nil", common.ErrInvalidInput)
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	var trigger sql.NullString
	if run.SafetyTrigger != nil {
		trigger = sql.NullString{String: *run.SafetyTrigger, Valid: true}
	}
	result := string(run.ResultJSON)
	if result == "" {
		result = "{}"
	}

	q := r.db.rebind(`INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.SQL.ExecContext(ctx, q,
		run.ID.String(),
		run.DocumentName,
		run.ContentHash,
		run.Format,
		run.ExtractionMethod,
		float64(run.ExtractionConfidence),
		string(run.RiskLevel),
		trigger,
		run.Stage,
		result,
		run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		r.logger.Error("failed to save run", "run_id", run.ID, "error", err)
		return common.NewAppError(common.CodeStoreError, "save run", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	r.logger.Debug("store.run.saved", "run_id", run.ID, "risk_level", run.RiskLevel)
	return nil
}

func (r *runRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	q := r.db.rebind(`SELECT ` + runColumns + ` FROM runs WHERE id = ?`)
	run, err := scanRun(r.db.SQL.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get run", "run_id", id, "error", err)
		return nil, common.NewAppError(common.CodeStoreError, "get run", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	return run, nil
}

func (r *runRepo) ListRecent(ctx context.Context, limit int) ([]*entity.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	q := r.db.rebind(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id LIMIT ?`)
	return r.list(ctx, q, limit)
}

func (r *runRepo) ListByContentHash(ctx context.Context, hash string) ([]*entity.Run, error) {
	q := r.db.rebind(`SELECT ` + runColumns + ` FROM runs WHERE content_hash = ? ORDER BY created_at DESC, id`)
	return r.list(ctx, q, hash)
}

func (r *runRepo) list(ctx context.Context, q string, args ...any) ([]*entity.Run, error) {
	rows, err := r.db.SQL.QueryContext(ctx, q, args...)
	if err != nil {
		r.logger.Error("failed to list runs", "error", err)
		return nil, common.NewAppError(common.CodeStoreError, "list runs", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []*entity.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, common.NewAppError(common.CodeStoreError, "scan run", fmt.Errorf("%w: %w", common.ErrDatabase, err))
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError(common.CodeStoreError, "list runs", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*entity.Run, error) {
	var (
		id, risk, created, result string
		confidence                float64
		trigger                   sql.NullString
		run                       entity.Run
	)
	err := s.Scan(&id, &run.DocumentName, &run.ContentHash, &run.Format, &run.ExtractionMethod,
		&confidence, &risk, &trigger, &run.Stage, &result, &created)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("bad run id %q: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	run.ExtractionConfidence = float32(confidence)
	run.RiskLevel = entity.RiskLevel(risk)
	if trigger.Valid {
		t := trigger.String
		run.SafetyTrigger = &t
	}
	run.ResultJSON = []byte(result)
	return &run, nil
}
