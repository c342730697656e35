/*
 * Copyright 2026 The myBase Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package whatsapp

import "errors"

var errNoExistingSessionToReconnect = errors.New("no existing session to reconnect")
