/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// CreateHumanInput contains parameters for creating a human
type CreateHumanInput struct {
	Name        string
	Birthdate   time.Time
	Gender      Gender
	PhoneNumber *string
}

// CreateHuman creates a new human and links any existing conversations
// whose customer phone number matches.
func CreateHuman(ctx context.Context, input CreateHumanInput) (*Human, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var human Human

	query := `
		INSERT INTO humans (name, birthdate, gender, phone_number)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, birthdate, gender, phone_number, created_at, updated_at
	`

	err := pool.QueryRow(ctx, query, input.Name, input.Birthdate, input.Gender, input.PhoneNumber).Scan(
		&human.ID, &human.Name, &human.Birthdate, &human.Gender, &human.PhoneNumber,
		&human.CreatedAt, &human.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create human: %w", err)
	}

	if input.PhoneNumber != nil {
		if err := AssociateConversationsWithHuman(ctx, &human); err != nil {
			logger.Warn("Failed to associate conversations with new human", "human_id", human.ID, "error", err)
		}
	}

	return &human, nil
}

// GetHuman returns a single human by ID
func GetHuman(ctx context.Context, id string) (*Human, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var human Human

	query := `
		SELECT id, name, birthdate, gender, phone_number, created_at, updated_at
		FROM humans
		WHERE id = $1
	`

	err := pool.QueryRow(ctx, query, id).Scan(
		&human.ID, &human.Name, &human.Birthdate, &human.Gender, &human.PhoneNumber,
		&human.CreatedAt, &human.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHumanNotFound
		}

		return nil, fmt.Errorf("failed to get human: %w", err)
	}

	return &human, nil
}

// ListHumans returns all humans ordered by name
func ListHumans(ctx context.Context) ([]Human, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	query := `
		SELECT id, name, birthdate, gender, phone_number, created_at, updated_at
		FROM humans
		ORDER BY name ASC
	`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list humans: %w", err)
	}
	defer rows.Close()

	var humans []Human

	for rows.Next() {
		var human Human
		if err := rows.Scan(
			&human.ID, &human.Name, &human.Birthdate, &human.Gender, &human.PhoneNumber,
			&human.CreatedAt, &human.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan human: %w", err)
		}

		humans = append(humans, human)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating humans: %w", err)
	}

	return humans, nil
}

// UpdateHumanPhoneNumber changes a human's phone number and re-links
// conversations to match.
func UpdateHumanPhoneNumber(ctx context.Context, id string, phoneNumber *string) (*Human, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var human Human

	query := `
		UPDATE humans
		SET phone_number = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, birthdate, gender, phone_number, created_at, updated_at
	`

	err := pool.QueryRow(ctx, query, id, phoneNumber).Scan(
		&human.ID, &human.Name, &human.Birthdate, &human.Gender, &human.PhoneNumber,
		&human.CreatedAt, &human.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHumanNotFound
		}

		return nil, fmt.Errorf("failed to update human phone number: %w", err)
	}

	if human.PhoneNumber != nil {
		if err := AssociateConversationsWithHuman(ctx, &human); err != nil {
			logger.Warn("Failed to associate conversations after phone update", "human_id", human.ID, "error", err)
		}
	}

	return &human, nil
}
