/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Seeded source type names. Each maps onto a filterable type.
var sourceTypeNames = []string{"Blood", "Bioimpedance", "Image"}

// SyncSourceTypes upserts the seeded source types. Called after
// migrations on every startup.
func SyncSourceTypes(ctx context.Context) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	for _, name := range sourceTypeNames {
		query := `
			INSERT INTO source_types (name)
			VALUES ($1)
			ON CONFLICT (name) DO NOTHING
		`

		if _, err := pool.Exec(ctx, query, name); err != nil {
			return fmt.Errorf("failed to sync source type %q: %w", name, err)
		}
	}

	logger.Debug("Synced source types", "count", len(sourceTypeNames))

	return nil
}

// GetSourceTypeByName returns a seeded source type.
func GetSourceTypeByName(ctx context.Context, name string) (*SourceType, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var st SourceType

	query := `SELECT id, name, created_at FROM source_types WHERE name = $1`

	err := pool.QueryRow(ctx, query, name).Scan(&st.ID, &st.Name, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownSourceType
		}

		return nil, fmt.Errorf("failed to get source type: %w", err)
	}

	return &st, nil
}

// CreateSourceInput contains parameters for creating a source
type CreateSourceInput struct {
	HumanID      uuid.UUID
	SourceTypeID uuid.UUID
	Origin       SourceOrigin
}

// CreateSource creates a new measurement source for a human.
func CreateSource(ctx context.Context, input CreateSourceInput) (*Source, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	if input.Origin == "" {
		input.Origin = OriginUnit
	}

	var source Source

	query := `
		INSERT INTO sources (human_id, source_type_id, origin)
		VALUES ($1, $2, $3)
		RETURNING id, human_id, source_type_id, origin, created_at, updated_at
	`

	err := pool.QueryRow(ctx, query, input.HumanID, input.SourceTypeID, input.Origin).Scan(
		&source.ID, &source.HumanID, &source.SourceTypeID, &source.Origin,
		&source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	return &source, nil
}

// GetSource returns a single source by ID
func GetSource(ctx context.Context, id string) (*Source, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var source Source

	query := `
		SELECT id, human_id, source_type_id, origin, created_at, updated_at
		FROM sources
		WHERE id = $1
	`

	err := pool.QueryRow(ctx, query, id).Scan(
		&source.ID, &source.HumanID, &source.SourceTypeID, &source.Origin,
		&source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSourceNotFound
		}

		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

// DeleteSource removes a source and all of its measures in a single
// transaction. Each measure goes through the same filter repair as a
// standalone delete, with the cascading source carried in the deletion
// context so its remaining measures stop counting as the latest exam.
func DeleteSource(ctx context.Context, id string) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	return withTx(ctx, func(tx pgx.Tx) error {
		var sourceID uuid.UUID

		err := tx.QueryRow(ctx, `SELECT id FROM sources WHERE id = $1 FOR UPDATE`, id).Scan(&sourceID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSourceNotFound
			}

			return fmt.Errorf("failed to lock source: %w", err)
		}

		delCtx := NewDeletionContext(sourceID)

		measures, err := listMeasuresBySource(ctx, tx, sourceID)
		if err != nil {
			return err
		}

		for i := range measures {
			if err := deleteMeasureInTx(ctx, tx, &measures[i], delCtx); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM sources WHERE id = $1`, sourceID); err != nil {
			return fmt.Errorf("failed to delete source: %w", err)
		}

		logger.Info("Deleted source with cascade", "source_id", sourceID, "measures", len(measures))

		return nil
	})
}
