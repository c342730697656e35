/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/flamego/flamego"
	"github.com/google/uuid"

	"github.com/mybasehealth/mybase/db"
)

const maxRequestBody = 1 << 20 // 1 MiB

func respondJSON(c flamego.Context, status int, v interface{}) {
	c.ResponseWriter().Header().Set("Content-Type", "application/json")
	c.ResponseWriter().WriteHeader(status)

	if err := json.NewEncoder(c.ResponseWriter()).Encode(v); err != nil {
		logger.Error("Error encoding response", "error", err)
	}
}

func respondError(c flamego.Context, status int, message string) {
	respondJSON(c, status, map[string]string{"error": message})
}

// respondDBError maps known database errors to HTTP statuses. Unknown
// errors are logged and hidden behind a generic 500.
func respondDBError(c flamego.Context, err error) {
	switch {
	case errors.Is(err, db.ErrHumanNotFound),
		errors.Is(err, db.ErrSourceNotFound),
		errors.Is(err, db.ErrMeasureNotFound),
		errors.Is(err, db.ErrBiomarkerNotFound),
		errors.Is(err, db.ErrConversationNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, db.ErrUnknownSourceType):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(c flamego.Context, v interface{}) error {
	body := http.MaxBytesReader(c.ResponseWriter(), c.Request().Body().ReadCloser(), maxRequestBody)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errInvalidRequestBody
	}

	return nil
}

func uuidParam(c flamego.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}

	return id, true
}

// parseSourceTypesParam splits a comma-separated source type list,
// dropping empty entries. An empty input means no restriction.
func parseSourceTypesParam(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var types []string

	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			types = append(types, name)
		}
	}

	return types
}

// parseBoolParam accepts the usual truthy query spellings. Absent or
// unrecognized values are false.
func parseBoolParam(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
