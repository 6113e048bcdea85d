// Copyright 2024 The Kiama Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license that can be
// found in the LICENSE file.

package kiama

import (
	"log/slog"

	"github.com/kiamalang/kiama/internal/slogpretty"
)

// Keys for the structured attributes logged by this package's Log/LogFail/
// Debug strategies and the error types in errors.go. Mirrors fox's own
// exported LoggerXxxKey constants, repointed
// at term/node values instead of HTTP request/response fields.
const (
	// LogStrategyKey is the key under which the active strategy's
	// [Strategy.String] is logged.
	LogStrategyKey = "strategy"
	// LogNodeKey is the key under which the term a strategy/attribute is
	// being applied to is logged.
	LogNodeKey = "node"
	// LogAttributeKey is the key under which an attribute's name is
	// logged.
	LogAttributeKey = "attribute"
	// LogChainKey is the key under which a chain decorator's name is
	// logged.
	LogChainKey = "chain"
)

// DefaultHandler is the pretty, colorized [slog.Handler] that [NewLogger]
// uses when given a nil handler. [Log], [LogFail] and [Debug] do not use
// it: given a nil logger they fall back to slog.Default(). It is fox's own
// dev-mode handler (internal/slogpretty, internal/ansi), unchanged except for the
// attribute keys it colorizes specially.
var DefaultHandler slog.Handler = slogpretty.DefaultHandler

// NewLogger builds a *slog.Logger backed by handler. A nil handler uses
// DefaultHandler.
func NewLogger(handler slog.Handler) *slog.Logger {
	if handler == nil {
		handler = DefaultHandler
	}
	return slog.New(handler)
}
