package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mlowell/blunderlab/internal/analysis"
)

// timeFormat stores timestamps as ISO 8601 text without a timezone
// suffix, always UTC.
const timeFormat = "2006-01-02 15:04:05.999999"

// ErrRunNotFound reports a run id with no stored row.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded analysis batch.
type Run struct {
	ID            string
	Username      string
	Perf          string
	Side          string
	Depth         int
	MaxGames      int
	GamesAnalyzed int
	GamesFailed   int
	ErrorCount    int
	CreatedAt     time.Time
}

// RunRepository stores and loads analysis runs.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun persists a run with its reports and their graded moves in
// one transaction. A missing id or creation time is filled in, and
// GamesAnalyzed and ErrorCount are recomputed from the reports.
// GamesFailed stays as the caller counted it, since skipped games
// produce no report.
func (r *RunRepository) SaveRun(ctx context.Context, run *Run, reports []analysis.GameReport) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.GamesAnalyzed = len(reports)
	run.ErrorCount = 0
	for i := range reports {
		run.ErrorCount += len(reports[i].Errors)
	}

	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, username, perf, side, depth, max_games,
				games_analyzed, games_failed, error_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Username, run.Perf, run.Side, run.Depth, run.MaxGames,
			run.GamesAnalyzed, run.GamesFailed, run.ErrorCount,
			run.CreatedAt.UTC().Format(timeFormat),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		for i := range reports {
			report := &reports[i]
			res, err := tx.ExecContext(ctx, `
				INSERT INTO game_reports (run_id, game_id, white, black,
					white_elo, black_elo, game_date, time_control, opening,
					result, parse_failed)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, report.GameID, report.Meta.White, report.Meta.Black,
				report.Meta.WhiteElo, report.Meta.BlackElo, report.Meta.Date,
				report.Meta.TimeControl, report.Meta.Opening, report.Meta.Result,
				boolToInt(report.ParseFailed),
			)
			if err != nil {
				return fmt.Errorf("failed to insert game report: %w", err)
			}
			reportID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to read report id: %w", err)
			}

			for _, rec := range report.Errors {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO move_errors (report_id, ply, move_no, side,
						played_san, played_uci, best_san, best_uci, cp_loss,
						severity, position_before, game_link)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					reportID, rec.Ply, rec.MoveNo, rec.Side,
					rec.PlayedSAN, rec.PlayedUCI, rec.BestSAN, rec.BestUCI,
					rec.CPLoss, rec.Severity.String(), rec.PositionBefore,
					rec.GameLink,
				)
				if err != nil {
					return fmt.Errorf("failed to insert move error: %w", err)
				}
			}
		}
		return nil
	})
}

// ListRuns returns all runs, newest first, without their reports.
func (r *RunRepository) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, username, perf, side, depth, max_games,
			games_analyzed, games_failed, error_count, created_at
		FROM runs
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun loads one run with its reports and graded moves.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*Run, []analysis.GameReport, error) {
	row := r.db.Conn().QueryRowContext(ctx, `
		SELECT id, username, perf, side, depth, max_games,
			games_analyzed, games_failed, error_count, created_at
		FROM runs
		WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}

	reports, err := r.loadReports(ctx, run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, reports, nil
}

// LatestRunID returns the id of the newest run.
func (r *RunRepository) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := r.db.Conn().QueryRowContext(ctx, `
		SELECT id FROM runs ORDER BY created_at DESC, id LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: no runs recorded yet", ErrRunNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest run: %w", err)
	}
	return id, nil
}

func (r *RunRepository) loadReports(ctx context.Context, runID string) ([]analysis.GameReport, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, game_id, white, black, white_elo, black_elo, game_date,
			time_control, opening, result, parse_failed
		FROM game_reports
		WHERE run_id = ?
		ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query game reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []analysis.GameReport
	var reportIDs []int64
	for rows.Next() {
		var reportID int64
		var report analysis.GameReport
		var parseFailed int
		if err := rows.Scan(&reportID, &report.GameID, &report.Meta.White,
			&report.Meta.Black, &report.Meta.WhiteElo, &report.Meta.BlackElo,
			&report.Meta.Date, &report.Meta.TimeControl, &report.Meta.Opening,
			&report.Meta.Result, &parseFailed); err != nil {
			return nil, fmt.Errorf("failed to scan game report: %w", err)
		}
		report.ParseFailed = parseFailed != 0
		reports = append(reports, report)
		reportIDs = append(reportIDs, reportID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate game reports: %w", err)
	}

	for i, reportID := range reportIDs {
		records, err := r.loadMoveErrors(ctx, reportID)
		if err != nil {
			return nil, err
		}
		reports[i].Errors = records
	}
	return reports, nil
}

func (r *RunRepository) loadMoveErrors(ctx context.Context, reportID int64) ([]analysis.MoveError, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT ply, move_no, side, played_san, played_uci, best_san,
			best_uci, cp_loss, severity, position_before, game_link
		FROM move_errors
		WHERE report_id = ?
		ORDER BY ply`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query move errors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []analysis.MoveError
	for rows.Next() {
		var rec analysis.MoveError
		var severity string
		if err := rows.Scan(&rec.Ply, &rec.MoveNo, &rec.Side, &rec.PlayedSAN,
			&rec.PlayedUCI, &rec.BestSAN, &rec.BestUCI, &rec.CPLoss,
			&severity, &rec.PositionBefore, &rec.GameLink); err != nil {
			return nil, fmt.Errorf("failed to scan move error: %w", err)
		}
		rec.Severity, err = analysis.ParseSeverity(severity)
		if err != nil {
			return nil, fmt.Errorf("failed to decode severity: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate move errors: %w", err)
	}
	return records, nil
}

// scanRun reads a run row from either a *sql.Row or *sql.Rows.
func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var run Run
	var createdAt string
	if err := row.Scan(&run.ID, &run.Username, &run.Perf, &run.Side,
		&run.Depth, &run.MaxGames, &run.GamesAnalyzed, &run.GamesFailed,
		&run.ErrorCount, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	parsed, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run timestamp %q: %w", createdAt, err)
	}
	run.CreatedAt = parsed
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
