/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"

	"github.com/flamego/flamego"

	"github.com/mybasehealth/mybase/db"
)

func panelInputFromRequest(c flamego.Context) (db.QueryPanelInput, bool) {
	humanID, ok := uuidParam(c, "id")
	if !ok {
		return db.QueryPanelInput{}, false
	}

	input := db.QueryPanelInput{
		HumanID:     humanID,
		SourceTypes: parseSourceTypesParam(c.Query("types")),
		Search:      c.Query("search"),
	}

	outOfRange := parseBoolParam(c.Query("out_of_range"))
	fromLatest := parseBoolParam(c.Query("latest_exam"))

	if outOfRange || fromLatest {
		input.Predicates = &db.PanelPredicates{
			OutOfRange:     outOfRange,
			FromLatestExam: fromLatest,
		}
	}

	return input, true
}

// BiomarkerPanel returns the latest-per-biomarker panel for a human,
// optionally narrowed by source types, filter predicates and search.
func BiomarkerPanel(c flamego.Context) {
	input, ok := panelInputFromRequest(c)
	if !ok {
		return
	}

	snapshots, err := db.QueryBiomarkerPanel(c.Request().Context(), input)
	if err != nil {
		respondDBError(c, err)
		return
	}

	if snapshots == nil {
		snapshots = []db.BiomarkerSnapshot{}
	}

	respondJSON(c, http.StatusOK, snapshots)
}

// SectionedBiomarkerPanel returns the panel grouped into labelled
// sections in the default display order.
func SectionedBiomarkerPanel(c flamego.Context) {
	input, ok := panelInputFromRequest(c)
	if !ok {
		return
	}

	sections, err := db.QuerySectionedPanel(c.Request().Context(), input, db.DefaultSectionOrder)
	if err != nil {
		respondDBError(c, err)
		return
	}

	if sections == nil {
		sections = []db.BiomarkerSection{}
	}

	respondJSON(c, http.StatusOK, sections)
}

// ListFilters returns the raw filter rows backing a human's panel
// predicates.
func ListFilters(c flamego.Context) {
	humanID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	filters, err := db.ListFilters(c.Request().Context(), humanID)
	if err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, filters)
}
