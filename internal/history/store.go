package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipfit/internal/bitrate"
	"clipfit/internal/media"
	"clipfit/internal/services"
)

const runColumns = `id, filename, input_size, target_size, settings_json, metadata_json, status,
	output_path, output_size, attempts, final_bitrate, error_kind, error_message, suggestion,
	started_at, finished_at`

// CreateRun inserts a run in the running state.
func (s *Store) CreateRun(ctx context.Context, id, filename string, inputSize int64, settings bitrate.Settings, started time.Time) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("run id is required")
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO runs (id, filename, input_size, target_size, settings_json, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, filename, inputSize, settings.TargetSizeBytes, string(settingsJSON), StatusRunning, formatTime(started),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordAttempt stores one finished attempt for runID.
func (s *Store) RecordAttempt(ctx context.Context, rec AttemptRecord) error {
	_, err := s.execWithRetry(ctx,
		`INSERT OR REPLACE INTO attempts (run_id, attempt, video_bitrate, audio_bitrate, width, height, fps,
		 mute_audio, output_size, elapsed_ms, profile, decision)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Attempt, rec.Params.VideoBitrate, rec.Params.AudioBitrate, rec.Params.Width, rec.Params.Height,
		rec.Params.FPS, boolToInt(rec.Params.MuteAudio), rec.OutputSize, rec.Elapsed.Milliseconds(), rec.Profile, rec.Decision,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// FinishRun writes the terminal state of runID.
func (s *Store) FinishRun(ctx context.Context, id string, f Finish) error {
	var metadataJSON sql.NullString
	if f.Metadata != nil {
		data, err := json.Marshal(f.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadataJSON = sql.NullString{String: string(data), Valid: true}
	}
	finished := f.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, metadata_json = COALESCE(?, metadata_json), output_path = ?, output_size = ?,
		 attempts = ?, final_bitrate = ?, error_kind = ?, error_message = ?, suggestion = ?, finished_at = ?
		 WHERE id = ?`,
		f.Status, metadataJSON, nullString(f.OutputPath), f.OutputSize, f.Attempts, f.FinalBitrate,
		nullString(f.ErrorKind), nullString(f.ErrorMessage), nullString(f.Suggestion), formatTime(finished), id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.Wrap(services.ErrNotFound, "history", "finish run", fmt.Sprintf("run %s not found", id), nil)
	}
	return nil
}

// Get returns the run with id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "history", "get run", fmt.Sprintf("run %s not found", id), nil)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FindByPrefix resolves an abbreviated run id. It fails when the prefix is ambiguous.
func (s *Store) FindByPrefix(ctx context.Context, prefix string) (*Run, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.New("run id is required")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id LIKE ? ORDER BY started_at DESC LIMIT 2`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, services.Wrap(services.ErrNotFound, "history", "find run", fmt.Sprintf("no run matches %q", prefix), nil)
	case 1:
		return &runs[0], nil
	default:
		return nil, services.Wrap(services.ErrValidation, "history", "find run", fmt.Sprintf("run id %q is ambiguous", prefix), nil)
	}
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// Attempts returns the attempts of runID in order.
func (s *Store) Attempts(ctx context.Context, runID string) ([]AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, attempt, video_bitrate, audio_bitrate, width, height, fps, mute_audio, output_size,
		 elapsed_ms, profile, decision FROM attempts WHERE run_id = ? ORDER BY attempt`, runID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var records []AttemptRecord
	for rows.Next() {
		var (
			rec       AttemptRecord
			mute      int
			elapsedMS int64
			profile   sql.NullString
		)
		if err := rows.Scan(&rec.RunID, &rec.Attempt, &rec.Params.VideoBitrate, &rec.Params.AudioBitrate,
			&rec.Params.Width, &rec.Params.Height, &rec.Params.FPS, &mute, &rec.OutputSize,
			&elapsedMS, &profile, &rec.Decision); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.Params.MuteAudio = mute != 0
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		rec.Profile = profile.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats returns a count of runs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("run stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// MarkInterrupted flags runs left in the running state by a previous
// process. It returns the number of runs updated.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE status = ?`,
		StatusInterrupted, formatTime(time.Now()), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes all but the newest keep runs. keep <= 0 keeps everything.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	const keepSet = `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`
	// foreign_keys is per connection, so attempts are removed explicitly.
	if _, err := s.execWithRetry(ctx, `DELETE FROM attempts WHERE run_id NOT IN (`+keepSet+`)`, keep); err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE id NOT IN (`+keepSet+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run          Run
		settingsJSON string
		metadataJSON sql.NullString
		outputPath   sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		suggestion   sql.NullString
		startedAt    string
		finishedAt   sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Filename, &run.InputSize, &run.TargetSize, &settingsJSON, &metadataJSON,
		&run.Status, &outputPath, &run.OutputSize, &run.Attempts, &run.FinalBitrate, &errorKind, &errorMessage,
		&suggestion, &startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(settingsJSON), &run.Settings); err != nil {
		return nil, fmt.Errorf("decode settings for run %s: %w", run.ID, err)
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		var meta media.VideoMetadata
		if err := json.Unmarshal([]byte(metadataJSON.String), &meta); err != nil {
			return nil, fmt.Errorf("decode metadata for run %s: %w", run.ID, err)
		}
		run.Metadata = &meta
	}
	run.OutputPath = outputPath.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	run.Suggestion = suggestion.String
	run.StartedAt = parseTime(startedAt)
	if finishedAt.Valid && finishedAt.String != "" {
		t := parseTime(finishedAt.String)
		run.FinishedAt = &t
	}
	return &run, nil
}

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
