/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package schema validates system documents against the embedded JSON schema.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed system.schema.json
var systemSchema []byte

// ErrInvalid wraps every schema violation.
var ErrInvalid = errors.New("document does not conform to system schema")

var (
	compileOnce sync.Once
	compiled    *gojsonschema.Schema
	compileErr  error
)

// Schema returns the raw embedded schema.
func Schema() []byte { return append([]byte(nil), systemSchema...) }

func load() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(systemSchema))
	})
	return compiled, compileErr
}

// ValidateSnapshot checks a JSON system document. Violations are returned as
// a single error wrapping ErrInvalid with one line per problem.
func ValidateSnapshot(data []byte) error {
	s, err := load()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
