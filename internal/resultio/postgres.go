package resultio

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink batches Result/RunSummary rows into psi_results and
// psi_run_summary via pgx's CopyFrom, grounded on the teacher's
// pgx/v5 + pgxpool batched-loader pattern.
type PostgresSink struct {
	pool          *pgxpool.Pool
	pendingResult []ResultRow
	batchSize     int
}

const defaultSinkBatchSize = 5000

// NewPostgresSink connects to dsn and returns a sink ready to receive
// rows; call InitSchema first on a fresh database.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresSink{pool: pool, batchSize: defaultSinkBatchSize}, nil
}

// InitSchema creates psi_results/psi_run_summary if absent, matching
// the teacher's -init flag behavior. schema is the CLI's embedded
// sql/schema.sql contents.
func InitSchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// WriteResult buffers a row and flushes once batchSize rows accumulate.
func (s *PostgresSink) WriteResult(ctx context.Context, row ResultRow) error {
	s.pendingResult = append(s.pendingResult, row)
	if len(s.pendingResult) >= s.batchSize {
		return s.flushResults(ctx)
	}
	return nil
}

func (s *PostgresSink) flushResults(ctx context.Context) error {
	if len(s.pendingResult) == 0 {
		return nil
	}
	rows := s.pendingResult
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"psi_results"},
		[]string{
			"row_index", "encounter_id", "psi_name", "status", "rationale", "details_json",
			"detail_fracture_type", "detail_risk_category", "detail_stratum",
			"detail_has_treatment_procedure",
			"detail_has_dialysis_procedure", "detail_has_reclosure_procedure",
		},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{
				r.RowIndex, r.EncounterID, r.PSIName, r.Status, r.Rationale, r.DetailsJSON,
				r.DetailFractureType, r.DetailRiskCategory, r.DetailStratum,
				r.DetailHasTreatmentProcedure,
				r.DetailHasDialysisProcedure, r.DetailHasReclosureProcedure,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy psi_results: %w", err)
	}
	s.pendingResult = s.pendingResult[:0]
	return nil
}

// WriteSummaries copies every RunSummary row in one batch; there are
// at most eleven of these per run so no buffering/flush threshold
// applies.
func (s *PostgresSink) WriteSummaries(ctx context.Context, rows []SummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"psi_run_summary"},
		[]string{"psi_name", "total_cases", "inclusions", "exclusions", "denominator_only", "rate_per_1000"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.PSIName, r.TotalCases, r.Inclusions, r.Exclusions, r.DenominatorOnly, r.RatePer1000}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy psi_run_summary: %w", err)
	}
	return nil
}

// Close flushes any buffered result rows and closes the pool.
func (s *PostgresSink) Close(ctx context.Context) error {
	err := s.flushResults(ctx)
	s.pool.Close()
	return err
}

// Pool exposes the underlying pool, used by the CLI's -init path which
// must initialize the schema before any sink activity.
func (s *PostgresSink) Pool() *pgxpool.Pool { return s.pool }
