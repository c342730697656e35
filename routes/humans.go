/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/flamego/flamego"

	"github.com/mybasehealth/mybase/db"
)

// ListHumans lists every registered human.
func ListHumans(c flamego.Context) {
	humans, err := db.ListHumans(c.Request().Context())
	if err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, humans)
}

// GetHuman returns a single human by ID.
func GetHuman(c flamego.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	human, err := db.GetHuman(c.Request().Context(), id.String())
	if err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, human)
}

type createHumanRequest struct {
	Name        string  `json:"name"`
	Gender      string  `json:"gender"`
	Birthdate   string  `json:"birthdate"`
	PhoneNumber *string `json:"phone_number"`
}

// CreateHuman registers a new human.
func CreateHuman(c flamego.Context) {
	var req createHumanRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		respondError(c, http.StatusBadRequest, errNameRequired.Error())
		return
	}

	gender := db.Gender(req.Gender)
	if gender != db.GenderMale && gender != db.GenderFemale {
		respondError(c, http.StatusBadRequest, errInvalidGender.Error())
		return
	}

	birthdate, err := time.Parse("2006-01-02", req.Birthdate)
	if err != nil {
		respondError(c, http.StatusBadRequest, errInvalidDate.Error())
		return
	}

	human, err := db.CreateHuman(c.Request().Context(), db.CreateHumanInput{
		Name:        strings.TrimSpace(req.Name),
		Birthdate:   birthdate,
		Gender:      gender,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, human)
}

type updatePhoneRequest struct {
	PhoneNumber *string `json:"phone_number"`
}

// UpdateHumanPhone sets or clears a human's phone number and relinks
// open conversations.
func UpdateHumanPhone(c flamego.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req updatePhoneRequest
	if err := decodeJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	human, err := db.UpdateHumanPhoneNumber(c.Request().Context(), id.String(), req.PhoneNumber)
	if err != nil {
		respondDBError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, human)
}
