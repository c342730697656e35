/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import "errors"

var (
	errInvalidRequestBody = errors.New("invalid request body")
	errNameRequired       = errors.New("name is required")
	errInvalidGender      = errors.New("gender must be M or F")
	errInvalidDate        = errors.New("date must be in YYYY-MM-DD format")
)
