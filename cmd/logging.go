/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import "github.com/mybasehealth/mybase/logging"

var appLogger = logging.Logger(logging.SourceApp)
var whatsappLogger = logging.Logger(logging.SourceWhatsApp)
