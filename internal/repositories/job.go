package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/relwatch/internal/models"
)

// JobRepository is the durable FIFO job queue.
type JobRepository struct {
	db DBTX
}

// NewJobRepository creates a new [JobRepository] with the given database handle
func NewJobRepository(db DBTX) *JobRepository {
	return &JobRepository{db: db}
}

// Enqueue appends a job and sets its ID
func (r *JobRepository) Enqueue(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	job.CreatedAt = now()

	var userID sql.NullString
	if job.UserID != "" {
		userID = sql.NullString{String: job.UserID, Valid: true}
	}

	query := `INSERT INTO jobs (kind, user_id, payload, created_at) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, string(job.Kind), userID, job.Payload, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read job id: %w", err)
	}
	job.ID = id
	return nil
}

// Next returns the job with the lowest id, or nil when the queue is empty
func (r *JobRepository) Next(ctx context.Context) (*models.Job, error) {
	query := `SELECT id, kind, user_id, payload, created_at FROM jobs ORDER BY id ASC LIMIT 1`

	job, err := r.scan(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

// Delete removes a completed job
func (r *JobRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// List returns queued jobs in processing order.
//
// Supported criteria: "kind" ([models.JobKind] or string), "user_id".
func (r *JobRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Job, error) {
	query := `SELECT id, kind, user_id, payload, created_at FROM jobs WHERE 1 = 1`
	args := []any{}

	switch kind := criteria["kind"].(type) {
	case models.JobKind:
		query += " AND kind = ?"
		args = append(args, string(kind))
	case string:
		if kind != "" {
			query += " AND kind = ?"
			args = append(args, kind)
		}
	}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// HasPending reports whether a job with this kind and payload is already queued
func (r *JobRepository) HasPending(ctx context.Context, kind models.JobKind, payload string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM jobs WHERE kind = ? AND payload = ?)`
	if err := r.db.QueryRowContext(ctx, query, string(kind), payload).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check jobs: %w", err)
	}
	return exists, nil
}

// Count returns the queue length
func (r *JobRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return n, nil
}

func (r *JobRepository) scan(s scanner) (*models.Job, error) {
	var (
		job    models.Job
		kind   string
		userID sql.NullString
	)

	err := s.Scan(&job.ID, &kind, &userID, &job.Payload, &job.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	job.Kind = models.JobKind(kind)
	job.UserID = userID.String
	return &job, nil
}
