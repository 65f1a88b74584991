package audit

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/kilgorjn/patient-scheduling/internal/shared/infrastructure/database"
	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
)

// SQLRepository implements Repository against the shared database.Connection
// abstraction, so the same code path serves both PostgreSQL and SQLite
// (local mode) without a driver-specific repository for each.
type SQLRepository struct {
	conn database.Connection
}

// NewSQLRepository builds a Repository over an already-opened connection.
func NewSQLRepository(conn database.Connection) *SQLRepository {
	return &SQLRepository{conn: conn}
}

// Schema is the DDL for the solve_runs table. The SQLite migration
// 0001_solve_runs.up.sql creates the same table from its own copy of this
// DDL; no migration runner applies this constant.
const Schema = `
CREATE TABLE IF NOT EXISTS solve_runs (
	id           TEXT PRIMARY KEY,
	fingerprint  TEXT NOT NULL,
	status       TEXT NOT NULL,
	objective    BIGINT,
	message      TEXT NOT NULL DEFAULT '',
	solve_time_ms BIGINT NOT NULL,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_solve_runs_created_at ON solve_runs (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_solve_runs_fingerprint ON solve_runs (fingerprint);
`

func (r *SQLRepository) Save(ctx context.Context, run *Run) error {
	var objective sql.NullInt64
	if run.Objective != nil {
		objective = sql.NullInt64{Int64: *run.Objective, Valid: true}
	}

	query := `
		INSERT INTO solve_runs (id, fingerprint, status, objective, message, solve_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	exec := database.ExecutorFromContext(ctx, r.conn)
	_, err := exec.Exec(ctx, query,
		run.ID.String(), run.Fingerprint, string(run.Status), objective, run.Message, run.SolveTimeMs, run.CreatedAt,
	)
	return err
}

func (r *SQLRepository) ListRecent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, fingerprint, status, objective, message, solve_time_ms, created_at
		FROM solve_runs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			idStr     string
			status    string
			objective sql.NullInt64
			run       Run
		)
		if err := rows.Scan(&idStr, &run.Fingerprint, &status, &objective, &run.Message, &run.SolveTimeMs, &run.CreatedAt); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		run.ID = id
		run.Status = domain.Status(status)
		if objective.Valid {
			v := objective.Int64
			run.Objective = &v
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

var _ Repository = (*SQLRepository)(nil)
