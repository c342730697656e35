/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the db package.
var (
	ErrDatabaseConnectionNotInitialized = errors.New("database connection not initialized")
	ErrDatabaseURLEnvVarNotSet          = errors.New("DATABASE_URL environment variable not set")
	ErrDatabaseNameNotSpecified         = errors.New("database name not specified in DATABASE_URL")
	ErrHumanNotFound                    = errors.New("human not found")
	ErrSourceNotFound                   = errors.New("source not found")
	ErrMeasureNotFound                  = errors.New("measure not found")
	ErrBiomarkerNotFound                = errors.New("biomarker not found")
	ErrConversationNotFound             = errors.New("conversation not found")
	ErrUnknownSourceType                = errors.New("unknown source type")
)

// FilterConsistencyError wraps a failure inside a filter reconciliation.
// It always aborts the transaction that triggered the reconciliation, so a
// measurement write never commits with its filter row out of date.
type FilterConsistencyError struct {
	Op  string
	Err error
}

func (e *FilterConsistencyError) Error() string {
	return fmt.Sprintf("filter consistency: %s: %v", e.Op, e.Err)
}

func (e *FilterConsistencyError) Unwrap() error {
	return e.Err
}
