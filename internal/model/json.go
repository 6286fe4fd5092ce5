/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package model

import (
	"encoding/json"
	"fmt"

	"structsketch/internal/domain"
	"structsketch/internal/schema"
)

// MarshalJSON encodes the exported snapshot in human-readable form.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(s.ExportSnapshot(), "", "  ")
}

// DecodeSnapshot validates data against the system schema and decodes it.
func DecodeSnapshot(data []byte) (domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := schema.ValidateSnapshot(data); err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode system: %w", err)
	}
	return snap, nil
}

// LoadJSON validates, decodes and imports a system document.
func (s *Store) LoadJSON(data []byte) (dropped int, err error) {
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return 0, err
	}
	return s.ImportSnapshot(snap), nil
}
