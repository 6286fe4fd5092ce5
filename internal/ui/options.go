/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"

	"structsketch/internal/config"
	"structsketch/internal/deform"
	"structsketch/internal/export"
	"structsketch/internal/solver"
	"structsketch/internal/storage"
)

// Options carries what the editor needs from the command line.
type Options struct {
	// Path is a system file to open on start; empty starts blank.
	Path     string
	Config   config.AppConfig
	Analyzer solver.Analyzer
	// Library is optional; without it the library menu is disabled.
	Library *storage.Library
}

// Amplitude converts the user's gain into the player amplitude for a. The
// deformation peak is drawn gain·base grid cells long.
func Amplitude(a *deform.Analysis, base, grid, gain float64) float64 {
	if a == nil {
		return 0
	}
	target := base * grid * gain
	if a.View == deform.ViewStatic {
		return deform.AutoScale(a.Static, target)
	}
	return target
}

// ThumbnailSize is the library preview size in pixels.
const ThumbnailSize = 240

// LibraryThumbnail returns the cached preview of a library system, rendering
// and caching it on first use.
func LibraryThumbnail(ctx context.Context, lib *storage.Library, name string) ([]byte, error) {
	w, h := ThumbnailSize, ThumbnailSize*3/4
	return lib.ThumbnailOrCreate(ctx, name, w, h, func(ctx context.Context) ([]byte, error) {
		snap, err := lib.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		return export.Thumbnail(snap, w, h)
	})
}
