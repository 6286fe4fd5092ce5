/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

// isolate points the config dir at a temp dir and stubs the keyring.
func isolate(t *testing.T) *memKeyring {
	t.Helper()
	t.Setenv("SSK_CONFIG_DIR", t.TempDir())
	mk := &memKeyring{m: map[string]string{}}
	prev := SetTokenStore(mk)
	t.Cleanup(func() { SetTokenStore(prev) })
	return mk
}

type memKeyring struct{ m map[string]string }

func (k *memKeyring) Get(service, key string) (string, error) {
	v, ok := k.m[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}
func (k *memKeyring) Set(service, key, value string) error { k.m[service+"/"+key] = value; return nil }
func (k *memKeyring) Delete(service, key string) error {
	if _, ok := k.m[service+"/"+key]; !ok {
		return keyring.ErrNotFound
	}
	delete(k.m, service+"/"+key)
	return nil
}

func TestEnvOverridesSolverURL(t *testing.T) {
	isolate(t)
	old := os.Getenv(EnvSolverURL)
	_ = os.Setenv(EnvSolverURL, "https://example.test:8443")
	t.Cleanup(func() { _ = os.Setenv(EnvSolverURL, old) })
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Solver.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Solver.BaseURL = %q, want %q", got, want)
	}
	if name, ok := EnvOverrideFor("solver.base_url"); !ok || name != EnvSolverURL {
		t.Fatalf("EnvOverrideFor = %q, %v", name, ok)
	}
}

func TestEnvOverridesTelemetryAndGrid(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTelemetryOptIn, "true")
	t.Setenv(EnvGridSize, "0.5")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
	if cfg.Canvas.GridSize != 0.5 {
		t.Fatalf("grid size = %v", cfg.Canvas.GridSize)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/ssk.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/ssk.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsDefaultsForEmptyFields(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	src.Solver.DynamicPath = "/api/dynamic"
	mergeInto(&dst, &src)
	if dst.Solver.DynamicPath != "/api/dynamic" || dst.Solver.SolutionPath != "/solution" {
		t.Fatalf("paths = %+v", dst.Solver)
	}
	if dst.Canvas.SnapRadiusPx != 12 || dst.Canvas.CellsAcross != 20 {
		t.Fatalf("canvas defaults lost: %+v", dst.Canvas)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/ssk.log")
	t.Setenv(EnvLogLevels, "solver=debug")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/ssk.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
	if cfg.Logging.Levels["solver"] != "debug" {
		t.Fatalf("component levels not applied: %v", cfg.Logging.Levels)
	}
	if name, ok := EnvOverrideFor("logging.levels"); !ok || name != EnvLogLevels {
		t.Fatalf("EnvOverrideFor(logging.levels) = %q, %v", name, ok)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	mk := isolate(t)
	cfg := Defaults()
	cfg.Canvas.GridSize = 0.25
	cfg.Solver.BaseURL = "http://solver.local"
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	path, _ := ConfigPath()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Canvas.GridSize != 0.25 || got.Solver.BaseURL != "http://solver.local" {
		t.Fatalf("loaded = %+v", got)
	}
	if tok != "s3cret" || len(mk.m) != 1 {
		t.Fatalf("token = %q, keyring %v", tok, mk.m)
	}
	if err := SetToken(KeySolverToken, ""); err != nil {
		t.Fatalf("delete token: %v", err)
	}
	if err := SetToken(KeySolverToken, ""); err != nil {
		t.Fatalf("deleting a missing token should be a no-op: %v", err)
	}
}

func TestLibraryPathDefaultsIntoConfigDir(t *testing.T) {
	isolate(t)
	dir, _ := ConfigDir()
	p, err := Defaults().LibraryPath()
	if err != nil || p != filepath.Join(dir, "systems.db") {
		t.Fatalf("library path = %q, %v", p, err)
	}
}

func TestTimeout(t *testing.T) {
	isolate(t)
	if Timeout(0, time.Second) != time.Second || Timeout(250, time.Second) != 250*time.Millisecond {
		t.Fatalf("timeout conversion wrong")
	}
	if _, err := Token("missing"); errors.Is(err, keyring.ErrNotFound) {
		t.Fatalf("missing token should not surface ErrNotFound")
	}
}
