package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storyreel/internal/domain"
)

// SessionRepositoryPG implements domain.SessionRepository using PostgreSQL.
// Storyboard, references and timeline are stored as jsonb documents; merge
// artifacts are append-only rows in session_artifacts.
type SessionRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository backed by PostgreSQL.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepositoryPG {
	return &SessionRepositoryPG{pool: pool}
}

// Create inserts a new session with its initial timeline document.
func (r *SessionRepositoryPG) Create(ctx context.Context, session *domain.Session, timelineJSON []byte) error {
	storyboardJSON, err := json.Marshal(session.Storyboard)
	if err != nil {
		return fmt.Errorf("encode storyboard: %w", err)
	}
	referencesJSON, err := json.Marshal(session.References)
	if err != nil {
		return fmt.Errorf("encode references: %w", err)
	}
	query := `
INSERT INTO sessions (id, title, pipeline, summary, storyboard_json, references_json, timeline_json)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err = r.pool.Exec(ctx, query,
		session.ID,
		session.Title,
		session.Pipeline,
		session.Summary,
		storyboardJSON,
		referencesJSON,
		timelineJSON,
	)
	return err
}

// Get fetches a session and its raw timeline document.
func (r *SessionRepositoryPG) Get(ctx context.Context, id string) (*domain.Session, []byte, error) {
	query := `
SELECT id, title, pipeline, summary, storyboard_json, references_json, timeline_json, created_at, updated_at
FROM sessions
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var (
		session        domain.Session
		storyboardJSON []byte
		referencesJSON []byte
		timelineJSON   []byte
	)
	if err := row.Scan(
		&session.ID,
		&session.Title,
		&session.Pipeline,
		&session.Summary,
		&storyboardJSON,
		&referencesJSON,
		&timelineJSON,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	if len(storyboardJSON) > 0 {
		if err := json.Unmarshal(storyboardJSON, &session.Storyboard); err != nil {
			return nil, nil, fmt.Errorf("decode storyboard: %w", err)
		}
	}
	if len(referencesJSON) > 0 {
		if err := json.Unmarshal(referencesJSON, &session.References); err != nil {
			return nil, nil, fmt.Errorf("decode references: %w", err)
		}
	}
	return &session, timelineJSON, nil
}

// SaveStoryboard replaces the storyboard document.
func (r *SessionRepositoryPG) SaveStoryboard(ctx context.Context, id string, storyboard domain.Storyboard) error {
	storyboardJSON, err := json.Marshal(storyboard)
	if err != nil {
		return fmt.Errorf("encode storyboard: %w", err)
	}
	query := `
UPDATE sessions
SET storyboard_json = $2,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, id, storyboardJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SaveTimeline replaces the timeline document.
func (r *SessionRepositoryPG) SaveTimeline(ctx context.Context, id string, timelineJSON []byte) error {
	query := `
UPDATE sessions
SET timeline_json = $2,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, id, timelineJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendArtifact records one merge output. Artifacts are append-only.
func (r *SessionRepositoryPG) AppendArtifact(ctx context.Context, id string, artifact domain.MergedArtifact) error {
	sourceOrderJSON, err := json.Marshal(artifact.SourceOrder)
	if err != nil {
		return fmt.Errorf("encode source order: %w", err)
	}
	query := `
INSERT INTO session_artifacts (session_id, uri, source_order_json, audio_mix_applied, created_at)
VALUES ($1, $2, $3, $4, $5);
`
	_, err = r.pool.Exec(ctx, query, id, artifact.URI, sourceOrderJSON, artifact.AudioMixApplied, artifact.CreatedAt)
	return err
}

// ListArtifacts returns the session's merge outputs, oldest first.
func (r *SessionRepositoryPG) ListArtifacts(ctx context.Context, id string) ([]domain.MergedArtifact, error) {
	query := `
SELECT uri, source_order_json, audio_mix_applied, created_at
FROM session_artifacts
WHERE session_id = $1
ORDER BY created_at ASC;
`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []domain.MergedArtifact
	for rows.Next() {
		var (
			artifact        domain.MergedArtifact
			sourceOrderJSON []byte
		)
		if err := rows.Scan(&artifact.URI, &sourceOrderJSON, &artifact.AudioMixApplied, &artifact.CreatedAt); err != nil {
			return nil, err
		}
		if len(sourceOrderJSON) > 0 {
			if err := json.Unmarshal(sourceOrderJSON, &artifact.SourceOrder); err != nil {
				return nil, fmt.Errorf("decode source order: %w", err)
			}
		}
		artifacts = append(artifacts, artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

var _ domain.SessionRepository = (*SessionRepositoryPG)(nil)
