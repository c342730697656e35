/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import "github.com/mybasehealth/mybase/logging"

var logger = logging.Logger(logging.SourceDB)
