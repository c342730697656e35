/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"time"

	"github.com/flamego/flamego"
	"github.com/google/uuid"

	"github.com/mybasehealth/mybase/db"
)

type createSourceRequest struct {
	HumanID    string `json:"human_id"`
	SourceType string `json:"source_type"`
	Origin     string `json:"origin"`
}

// CreateSource registers a measurement source (an exam) for a human.
func CreateSource(c flamego.Context) {
	var req createSourceRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	humanID, err := uuid.Parse(req.HumanID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid human_id")
		return
	}

	sourceType, err := db.GetSourceTypeByName(c.Request().Context(), req.SourceType)
	if err != nil {
		respondDBError(c, err)
		return
	}

	source, err := db.CreateSource(c.Request().Context(), db.CreateSourceInput{
		HumanID:      humanID,
		SourceTypeID: sourceType.ID,
		Origin:       db.SourceOrigin(req.Origin),
	})
	if err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, source)
}

// DeleteSource removes a source with all of its measures, repairing the
// affected filters.
func DeleteSource(c flamego.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := db.DeleteSource(c.Request().Context(), id.String()); err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, map[string]string{"status": "deleted"})
}

type createMeasureRequest struct {
	BiomarkerID string  `json:"biomarker_id"`
	SourceID    string  `json:"source_id"`
	UnitID      *string `json:"unit_id"`
	Value       float64 `json:"value"`
	Date        string  `json:"date"`
}

// CreateMeasure records a measurement and updates the panel state for
// its biomarker.
func CreateMeasure(c flamego.Context) {
	var req createMeasureRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	biomarkerID, err := uuid.Parse(req.BiomarkerID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid biomarker_id")
		return
	}

	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid source_id")
		return
	}

	var unitID *uuid.UUID

	if req.UnitID != nil {
		parsed, err := uuid.Parse(*req.UnitID)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid unit_id")
			return
		}

		unitID = &parsed
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, errInvalidDate.Error())
		return
	}

	measure, err := db.CreateMeasure(c.Request().Context(), db.CreateMeasureInput{
		BiomarkerID: biomarkerID,
		SourceID:    sourceID,
		UnitID:      unitID,
		Value:       req.Value,
		Date:        date,
	})
	if err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, measure)
}

type updateMeasureRequest struct {
	Value float64 `json:"value"`
	Date  string  `json:"date"`
}

// UpdateMeasure corrects a measurement's value or date.
func UpdateMeasure(c flamego.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req updateMeasureRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, errInvalidDate.Error())
		return
	}

	measure, err := db.UpdateMeasure(c.Request().Context(), id.String(), req.Value, date)
	if err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, measure)
}

// DeleteMeasure removes a measurement, repairing the filter from the
// next surviving measure.
func DeleteMeasure(c flamego.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := db.DeleteMeasure(c.Request().Context(), id.String()); err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, map[string]string{"status": "deleted"})
}
