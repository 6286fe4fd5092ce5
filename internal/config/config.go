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
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	applog "structsketch/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
	AutosaveDir    string `yaml:"autosave_dir"`
}

type CanvasConfig struct {
	GridSize     float64 `yaml:"grid_size"` // meters per cell
	CellsAcross  float64 `yaml:"cells_across"`
	SnapRadiusPx float64 `yaml:"snap_radius_px"`
	MemberHitPx  float64 `yaml:"member_hit_px"`
	GridSnap     bool    `yaml:"grid_snap"`
	Amplitude    float64 `yaml:"amplitude"` // deformation drawing amplitude in meters
}

type SolverConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutMs      int    `yaml:"timeout_ms"`
	KinematicsPath string `yaml:"kinematics_path"`
	SolutionPath   string `yaml:"solution_path"`
	SimplifyPath   string `yaml:"simplify_path"`
	DynamicPath    string `yaml:"dynamic_path"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type SystemsConfig struct {
	BaseURL      string `yaml:"base_url"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	LibraryPath  string `yaml:"library_path"` // local SQLite library; empty = default location
	EnableServer bool   `yaml:"enable_server"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
	// Levels overrides Level per component, e.g. {solver: debug}.
	Levels map[string]string `yaml:"levels,omitempty"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Solver        SolverConfig  `yaml:"solver"`
	Systems       SystemsConfig `yaml:"systems"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Canvas:        CanvasConfig{GridSize: 1, CellsAcross: 20, SnapRadiusPx: 12, MemberHitPx: 8, GridSnap: true, Amplitude: 0.5},
		Solver: SolverConfig{
			BaseURL: "http://localhost:8000", TimeoutMs: 60000,
			KinematicsPath: "/kinematics", SolutionPath: "/solution", SimplifyPath: "/simplify", DynamicPath: "/dynamic",
		},
		Systems: SystemsConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvSolverURL       = "SSK_SOLVER_URL"
	EnvSolverTimeoutMs = "SSK_SOLVER_TIMEOUT_MS"
	EnvSystemsURL      = "SSK_SYSTEMS_URL"
	EnvLibraryPath     = "SSK_LIBRARY"
	EnvGridSize        = "SSK_GRID_SIZE"
	EnvTelemetryOptIn  = "SSK_TELEMETRY_OPT_IN"
	EnvEnableServer    = "SSK_ENABLE_SERVER"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SSK_LOG_LEVEL"
	EnvLogFormat = "SSK_LOG_FORMAT"
	EnvLogSource = "SSK_LOG_SOURCE"
	EnvLogFile   = "SSK_LOG_FILE"
	EnvLogLevels = "SSK_LOG_LEVELS"
)

// Service/keys for OS keyring.
const (
	keyringService  = "StructSketch"
	KeySolverToken  = "solver_token"
	KeySystemsToken = "systems_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// SetTokenStore replaces the keyring backend and returns the previous one.
func SetTokenStore(ts TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = ts
	return prev
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// Token reads a token from the keyring; a missing entry is an empty token.
func Token(key string) (string, error) {
	tok, err := tokenStore.Get(keyringService, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return tok, err
}

// SetToken stores a token; an empty value deletes it.
func SetToken(key, value string) error {
	if value == "" {
		err := tokenStore.Delete(keyringService, key)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return tokenStore.Set(keyringService, key, value)
}

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	if v := os.Getenv("SSK_CONFIG_DIR"); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "StructSketch")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "StructSketch")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "structsketch")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LibraryPath resolves the local systems library file.
func (c AppConfig) LibraryPath() (string, error) {
	if c.Systems.LibraryPath != "" {
		return c.Systems.LibraryPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "systems.db"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the solver token from keyring (not kept inside the struct; returned separately).
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := Token(KeySolverToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the solver token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := SetToken(KeySolverToken, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.General.AutosaveDir != "" {
		dst.General.AutosaveDir = src.General.AutosaveDir
	}
	// canvas
	if src.Canvas.GridSize > 0 {
		dst.Canvas.GridSize = src.Canvas.GridSize
	}
	if src.Canvas.CellsAcross > 0 {
		dst.Canvas.CellsAcross = src.Canvas.CellsAcross
	}
	if src.Canvas.SnapRadiusPx > 0 {
		dst.Canvas.SnapRadiusPx = src.Canvas.SnapRadiusPx
	}
	if src.Canvas.MemberHitPx > 0 {
		dst.Canvas.MemberHitPx = src.Canvas.MemberHitPx
	}
	if src.Canvas.Amplitude > 0 {
		dst.Canvas.Amplitude = src.Canvas.Amplitude
	}
	dst.Canvas.GridSnap = src.Canvas.GridSnap
	// solver
	if src.Solver.BaseURL != "" {
		dst.Solver.BaseURL = src.Solver.BaseURL
	}
	if src.Solver.TimeoutMs != 0 {
		dst.Solver.TimeoutMs = src.Solver.TimeoutMs
	}
	for _, p := range []struct{ dst, src *string }{
		{&dst.Solver.KinematicsPath, &src.Solver.KinematicsPath},
		{&dst.Solver.SolutionPath, &src.Solver.SolutionPath},
		{&dst.Solver.SimplifyPath, &src.Solver.SimplifyPath},
		{&dst.Solver.DynamicPath, &src.Solver.DynamicPath},
	} {
		if strings.TrimSpace(*p.src) != "" {
			*p.dst = strings.TrimSpace(*p.src)
		}
	}
	// systems
	if src.Systems.BaseURL != "" {
		dst.Systems.BaseURL = src.Systems.BaseURL
	}
	if src.Systems.TimeoutMs != 0 {
		dst.Systems.TimeoutMs = src.Systems.TimeoutMs
	}
	if src.Systems.LibraryPath != "" {
		dst.Systems.LibraryPath = src.Systems.LibraryPath
	}
	dst.Systems.EnableServer = src.Systems.EnableServer
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if len(src.Logging.Levels) > 0 {
		dst.Logging.Levels = src.Logging.Levels
	}
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvSolverURL)); v != "" {
		cfg.Solver.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSolverTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSystemsURL)); v != "" {
		cfg.Systems.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLibraryPath)); v != "" {
		cfg.Systems.LibraryPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvGridSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Canvas.GridSize = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvEnableServer)); v != "" {
		cfg.Systems.EnableServer = truthy(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevels)); v != "" {
		if lv := applog.ParseLevels(v); len(lv) > 0 {
			cfg.Logging.Levels = lv
		}
	}
}

var envKeys = map[string]string{
	"solver.base_url":          EnvSolverURL,
	"solver.timeout_ms":        EnvSolverTimeoutMs,
	"systems.base_url":         EnvSystemsURL,
	"systems.library_path":     EnvLibraryPath,
	"systems.enable_server":    EnvEnableServer,
	"canvas.grid_size":         EnvGridSize,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
	"logging.levels":           EnvLogLevels,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout converts a millisecond setting, falling back to def for non-positive values.
func Timeout(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
