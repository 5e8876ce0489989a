package db

import (
	"context"
	"fmt"

	"narrator/internal/app/narrator"
	"narrator/pkg/gradio"

	"github.com/jackc/pgx/v5"
)

const maxListLimit = 500

var _ narrator.History = (*DB)(nil)

func (db *DB) InsertNarration(ctx context.Context, n *narrator.Narration) error {
	_, err := db.Exec(ctx, `
		insert into
			narrations (id, event_id, title, language, voice, audio_path, audio_url, text, archive_key, created_at)
		values
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, n.ID, string(n.EventID), n.Title, n.Language, n.Voice, n.AudioPath, n.AudioURL, n.Text, n.ArchiveKey, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert narration: %w", parseErr(err))
	}

	return nil
}

// ListNarrations returns the latest narrations, newest first.
func (db *DB) ListNarrations(ctx context.Context, limit int) ([]*narrator.Narration, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := db.Query(ctx, `
		select
			n.id,
			n.event_id,
			n.title,
			n.language,
			n.voice,
			n.audio_path,
			n.audio_url,
			n.text,
			n.archive_key,
			n.created_at
		from narrations n
		order by n.created_at desc
		limit $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query narrations: %w", parseErr(err))
	}

	narrations, err := pgx.CollectRows(rows, scanNarration)
	if err != nil {
		return nil, fmt.Errorf("failed to scan narrations: %w", parseErr(err))
	}

	return narrations, nil
}

func scanNarration(row pgx.CollectableRow) (*narrator.Narration, error) {
	var n narrator.Narration
	var eventID string

	err := row.Scan(
		&n.ID,
		&eventID,
		&n.Title,
		&n.Language,
		&n.Voice,
		&n.AudioPath,
		&n.AudioURL,
		&n.Text,
		&n.ArchiveKey,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.EventID = gradio.EventID(eventID)

	return &n, nil
}
