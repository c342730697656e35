/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DeletionContext lists the sources currently mid-cascade-delete, so a
// reconciliation can ignore their measurements when deciding which exam
// is the latest. It is passed explicitly; nothing here is global state.
type DeletionContext map[uuid.UUID]struct{}

// NewDeletionContext returns a context covering the given source IDs.
func NewDeletionContext(sourceIDs ...uuid.UUID) DeletionContext {
	ctx := make(DeletionContext, len(sourceIDs))
	for _, id := range sourceIDs {
		ctx[id] = struct{}{}
	}

	return ctx
}

// Deleting reports whether the source is part of the cascade. Nil-safe.
func (c DeletionContext) Deleting(sourceID uuid.UUID) bool {
	if c == nil {
		return false
	}

	_, ok := c[sourceID]

	return ok
}

// measureContext is the resolved surroundings of a measure: its human,
// the human's demographics and the source type's filterable kind.
type measureContext struct {
	HumanID        uuid.UUID
	Gender         Gender
	BirthdateAge   int
	SourceTypeID   uuid.UUID
	FilterableType FilterableType
}

// Reconcile recomputes the filter row for the measure's triplet. It is
// the manual-repair entry point; measurement writes reconcile inside
// their own transaction instead.
func Reconcile(ctx context.Context, measureID string) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	return withTx(ctx, func(tx pgx.Tx) error {
		measure, err := getMeasureTx(ctx, tx, measureID)
		if err != nil {
			return err
		}

		return reconcileInTx(ctx, tx, measure, nil, nil)
	})
}

// reconcileInTx brings the (human, biomarker, source type) filter row in
// line with the given measure. A hint is a just-deleted, more recent
// measure of the same human and biomarker; delCtx lists sources whose
// cascade delete is in flight. Skips are logged no-ops; real failures
// come back as *FilterConsistencyError so the caller's transaction
// aborts rather than committing an inconsistent row.
func reconcileInTx(ctx context.Context, tx pgx.Tx, measure *Measure, hint *Measure, delCtx DeletionContext) error {
	mc, ok, err := resolveMeasureContext(ctx, tx, measure)
	if err != nil {
		return &FilterConsistencyError{Op: "resolve measure context", Err: err}
	}

	if !ok {
		logger.Warn("Skipping filter update for unresolvable measure",
			"measure_id", measure.ID)
		return nil
	}

	if err := lockTriplet(ctx, tx, mc.HumanID, measure.BiomarkerID, mc.FilterableType); err != nil {
		return &FilterConsistencyError{Op: "acquire triplet lock", Err: err}
	}

	latest, err := isLatestForBiomarker(ctx, tx, mc, measure)
	if err != nil {
		return &FilterConsistencyError{Op: "check latest measure date", Err: err}
	}

	if !latest {
		logger.Debug("Skipping stale filter update",
			"measure_id", measure.ID, "biomarker_id", measure.BiomarkerID)
		return nil
	}

	rangeStatus, err := rangeStatusForMeasure(ctx, tx, mc, measure)
	if err != nil {
		return &FilterConsistencyError{Op: "compute range status", Err: err}
	}

	fromLatest, err := isFromLatestExam(ctx, tx, mc, measure, hint, delCtx)
	if err != nil {
		return &FilterConsistencyError{Op: "compute latest exam flag", Err: err}
	}

	if err := upsertFilter(ctx, tx, mc, measure, rangeStatus, fromLatest); err != nil {
		return &FilterConsistencyError{Op: "write filter row", Err: err}
	}

	if fromLatest {
		if err := propagateLatestExam(ctx, tx, mc, measure.SourceID); err != nil {
			return &FilterConsistencyError{Op: "propagate latest exam flag", Err: err}
		}
	}

	return nil
}

// resolveMeasureContext joins the measure out to its source, source type
// and human. ok is false when any of those references dangle.
func resolveMeasureContext(ctx context.Context, q querier, measure *Measure) (*measureContext, bool, error) {
	var (
		mc             measureContext
		sourceTypeName string
	)

	query := `
		SELECT h.id, h.gender,
		       FLOOR(EXTRACT(EPOCH FROM ($2::timestamptz - h.birthdate)) / 86400 / 365.25)::int,
		       st.id, st.name
		FROM sources s
		JOIN source_types st ON st.id = s.source_type_id
		JOIN humans h ON h.id = s.human_id
		WHERE s.id = $1
	`

	err := q.QueryRow(ctx, query, measure.SourceID, measure.Date).Scan(
		&mc.HumanID, &mc.Gender, &mc.BirthdateAge, &mc.SourceTypeID, &sourceTypeName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to resolve measure context: %w", err)
	}

	ft, known := FilterableTypeForSourceType(sourceTypeName)
	if !known {
		return nil, false, nil
	}

	if mc.BirthdateAge < 0 {
		mc.BirthdateAge = 0
	}

	mc.FilterableType = ft

	return &mc, true, nil
}

// lockTriplet serializes reconciliations of one triplet for the rest of
// the transaction.
func lockTriplet(ctx context.Context, tx pgx.Tx, humanID, biomarkerID uuid.UUID, ft FilterableType) error {
	h := fnv.New64a()
	h.Write([]byte(humanID.String()))
	h.Write([]byte{'|'})
	h.Write([]byte(biomarkerID.String()))
	h.Write([]byte{'|'})
	h.Write([]byte(ft))

	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(h.Sum64()))

	return err
}

// isLatestForBiomarker reports whether no other measure of the same
// human, biomarker and source type carries a later calendar date.
func isLatestForBiomarker(ctx context.Context, q querier, mc *measureContext, measure *Measure) (bool, error) {
	var newerExists bool

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM measures m
			JOIN sources s ON s.id = m.source_id
			WHERE s.human_id = $1
			  AND s.source_type_id = $2
			  AND m.biomarker_id = $3
			  AND m.id <> $4
			  AND m.date::date > $5::date
		)
	`

	err := q.QueryRow(ctx, query,
		mc.HumanID, mc.SourceTypeID, measure.BiomarkerID, measure.ID, measure.Date,
	).Scan(&newerExists)
	if err != nil {
		return false, fmt.Errorf("failed to check for newer measures: %w", err)
	}

	return !newerExists, nil
}

// rangeStatusForMeasure classifies the measure's value against the most
// recently updated reference range for the human's gender and exact age
// at the measurement date. Missing reference data is not an error.
func rangeStatusForMeasure(ctx context.Context, q querier, mc *measureContext, measure *Measure) (RangeStatus, error) {
	r, err := getLatestRange(ctx, q, measure.BiomarkerID, mc.Gender, mc.BirthdateAge)
	if err != nil {
		return "", err
	}

	if r == nil {
		logger.Debug("No reference range registered",
			"biomarker_id", measure.BiomarkerID, "gender", mc.Gender, "age", mc.BirthdateAge)
		return RangeNotAvailable, nil
	}

	return r.Classify(measure.Value), nil
}

// isFromLatestExam reports whether the measure's source is the human's
// most recent exam of this source type. Measures of the measure's own
// source never count as competition; the hint's source is ignored only
// while its delete cascade is in flight. Equal dates count as latest.
func isFromLatestExam(ctx context.Context, q querier, mc *measureContext, measure *Measure, hint *Measure, delCtx DeletionContext) (bool, error) {
	excluded := []uuid.UUID{measure.SourceID}
	if hint != nil && delCtx.Deleting(hint.SourceID) {
		excluded = append(excluded, hint.SourceID)
	}

	var otherMax *time.Time

	query := `
		SELECT max(m.date::date)
		FROM measures m
		JOIN sources s ON s.id = m.source_id
		WHERE s.human_id = $1
		  AND s.source_type_id = $2
		  AND NOT (m.source_id = ANY($3))
	`

	err := q.QueryRow(ctx, query, mc.HumanID, mc.SourceTypeID, excluded).Scan(&otherMax)
	if err != nil {
		return false, fmt.Errorf("failed to find latest exam date: %w", err)
	}

	if otherMax == nil {
		return true, nil
	}

	return !truncateToDate(measure.Date).Before(*otherMax), nil
}

// upsertFilter finds or creates the triplet's filter row and points it
// at the measure with the computed state. The unique index keeps the
// triplet single-rowed even under concurrent writers.
func upsertFilter(ctx context.Context, q querier, mc *measureContext, measure *Measure, rangeStatus RangeStatus, fromLatest bool) error {
	query := `
		INSERT INTO filters (measure_id, human_id, biomarker_id, filterable_type, range_status, is_from_latest_exam)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (human_id, biomarker_id, filterable_type) DO UPDATE
		SET measure_id = EXCLUDED.measure_id,
		    range_status = EXCLUDED.range_status,
		    is_from_latest_exam = EXCLUDED.is_from_latest_exam,
		    updated_at = now()
	`

	_, err := q.Exec(ctx, query,
		measure.ID, mc.HumanID, measure.BiomarkerID, mc.FilterableType, rangeStatus, fromLatest,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert filter: %w", err)
	}

	return nil
}

// propagateLatestExam flips the human's other same-type filters off the
// latest-exam flag and forces every filter riding the winning source on.
func propagateLatestExam(ctx context.Context, q querier, mc *measureContext, sourceID uuid.UUID) error {
	demote := `
		UPDATE filters f
		SET is_from_latest_exam = FALSE, updated_at = now()
		FROM measures m
		WHERE m.id = f.measure_id
		  AND f.human_id = $1
		  AND f.filterable_type = $2
		  AND f.is_from_latest_exam
		  AND m.source_id <> $3
	`

	if _, err := q.Exec(ctx, demote, mc.HumanID, mc.FilterableType, sourceID); err != nil {
		return fmt.Errorf("failed to demote stale latest-exam filters: %w", err)
	}

	promote := `
		UPDATE filters f
		SET is_from_latest_exam = TRUE, updated_at = now()
		FROM measures m
		WHERE m.id = f.measure_id
		  AND m.source_id = $1
		  AND NOT f.is_from_latest_exam
	`

	if _, err := q.Exec(ctx, promote, sourceID); err != nil {
		return fmt.Errorf("failed to promote latest-exam filters: %w", err)
	}

	return nil
}

// deleteFiltersForMeasure removes the filter rows that reference the
// measure, ahead of the measure's own deletion. A filter representing a
// different measure of the same triplet stays untouched, so deleting a
// stale measure never loses panel state.
func deleteFiltersForMeasure(ctx context.Context, tx pgx.Tx, measure *Measure) error {
	mc, ok, err := resolveMeasureContext(ctx, tx, measure)
	if err != nil {
		return &FilterConsistencyError{Op: "resolve measure context", Err: err}
	}

	if !ok {
		// Dangling references mean no filter row could have been
		// written for this triplet either.
		return nil
	}

	query := `
		DELETE FROM filters
		WHERE measure_id = $1 AND filterable_type = $2
	`

	if _, err := tx.Exec(ctx, query, measure.ID, mc.FilterableType); err != nil {
		return &FilterConsistencyError{Op: "delete filter row", Err: err}
	}

	return nil
}

// nextSurvivingMeasure returns the most recent remaining measure for the
// human and biomarker, ordered deterministically, or nil when none left.
func nextSurvivingMeasure(ctx context.Context, q querier, humanID, biomarkerID uuid.UUID) (*Measure, error) {
	var m Measure

	query := `
		SELECT m.id, m.biomarker_id, m.source_id, m.unit_id, m.value, m.date, m.created_at, m.updated_at
		FROM measures m
		JOIN sources s ON s.id = m.source_id
		WHERE s.human_id = $1 AND m.biomarker_id = $2
		ORDER BY m.date DESC, m.created_at DESC, m.id DESC
		LIMIT 1
	`

	err := q.QueryRow(ctx, query, humanID, biomarkerID).Scan(
		&m.ID, &m.BiomarkerID, &m.SourceID, &m.UnitID, &m.Value, &m.Date,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // nothing left to repair is a valid state
		}

		return nil, fmt.Errorf("failed to find surviving measure: %w", err)
	}

	return &m, nil
}

// GetFilter returns the filter row for a triplet, or nil when absent.
func GetFilter(ctx context.Context, humanID, biomarkerID uuid.UUID, ft FilterableType) (*Filter, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	var f Filter

	query := `
		SELECT id, measure_id, human_id, biomarker_id, filterable_type, range_status, is_from_latest_exam, created_at, updated_at
		FROM filters
		WHERE human_id = $1 AND biomarker_id = $2 AND filterable_type = $3
	`

	err := pool.QueryRow(ctx, query, humanID, biomarkerID, ft).Scan(
		&f.ID, &f.MeasureID, &f.HumanID, &f.BiomarkerID, &f.FilterableType,
		&f.RangeStatus, &f.IsFromLatestExam, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // the triplet simply has no filter yet
		}

		return nil, fmt.Errorf("failed to get filter: %w", err)
	}

	return &f, nil
}

// ListFilters returns all filter rows for a human.
func ListFilters(ctx context.Context, humanID uuid.UUID) ([]Filter, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	query := `
		SELECT id, measure_id, human_id, biomarker_id, filterable_type, range_status, is_from_latest_exam, created_at, updated_at
		FROM filters
		WHERE human_id = $1
		ORDER BY created_at ASC
	`

	rows, err := pool.Query(ctx, query, humanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	defer rows.Close()

	var filters []Filter

	for rows.Next() {
		var f Filter
		if err := rows.Scan(
			&f.ID, &f.MeasureID, &f.HumanID, &f.BiomarkerID, &f.FilterableType,
			&f.RangeStatus, &f.IsFromLatestExam, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan filter: %w", err)
		}

		filters = append(filters, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filters: %w", err)
	}

	return filters, nil
}

// truncateToDate drops the time-of-day component, keeping the calendar
// date in UTC the way the date-granular comparisons expect.
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
