/*
 * Copyright © 2023 Laminar Markets, Ltd.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
 * an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
 * specific language governing permissions and limitations under the License.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package log carries a logrus entry through context so every layer of
// the client logs with the fields accumulated by its callers.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var rootLogger = logrus.NewEntry(logrus.StandardLogger())

// L returns the logger for the context, or the root logger when the
// context carries none.
func L(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return logger
	}
	return rootLogger
}

// WithLogField returns a context whose logger carries an extra field.
func WithLogField(ctx context.Context, key, value string) context.Context {
	return context.WithValue(ctx, ctxKey{}, L(ctx).WithField(key, value))
}

// WithLogFields returns a context whose logger carries extra fields.
func WithLogFields(ctx context.Context, fields logrus.Fields) context.Context {
	return context.WithValue(ctx, ctxKey{}, L(ctx).WithFields(fields))
}

// SetLevel adjusts the level of the process-wide root logger.
func SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}
