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

	"gopkg.in/yaml.v3"
)

// PlayerConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type PlaybackConfig struct {
	FPS         int  `yaml:"fps"`
	WindowScale int  `yaml:"window_scale"` // percent, 100 = story-native size
	Mute        bool `yaml:"mute"`
}

// VolumeConfig holds per-channel startup volumes as percentages (0-100).
type VolumeConfig struct {
	Music int `yaml:"music"`
	FX    int `yaml:"fx"`
	Voice int `yaml:"voice"`
	Text  int `yaml:"text"`
}

type RemoteConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// The license key is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type PlayerConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	Playback      PlaybackConfig `yaml:"playback"`
	Volume        VolumeConfig   `yaml:"volume"`
	Remote        RemoteConfig   `yaml:"remote"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() PlayerConfig {
	return PlayerConfig{
		ConfigVersion: 1,
		Playback:      PlaybackConfig{FPS: 60, WindowScale: 100, Mute: false},
		Volume:        VolumeConfig{Music: 100, FX: 100, Voice: 100, Text: 100},
		Remote:        RemoteConfig{Enabled: false, BaseURL: "", TimeoutMs: 15000, TLSInsecure: false},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvFPS            = "NVP_FPS"
	EnvMute           = "NVP_MUTE"
	EnvRemoteURL      = "NVP_REMOTE_URL"
	EnvRemoteTimeout  = "NVP_REMOTE_TIMEOUT_MS"
	EnvRemoteTLSInsec = "NVP_TLS_INSECURE"
	EnvRemoteEnabled  = "NVP_REMOTE_ENABLED"
	EnvLogLevel       = "NVP_LOG_LEVEL"
	EnvLogFormat      = "NVP_LOG_FORMAT"
	EnvLogSource      = "NVP_LOG_SOURCE"
	EnvLogFile        = "NVP_LOG_FILE"
)

// Service/keys for the OS keyring.
const (
	keyringService = "NovelPlay"
	keyringLicense = "license_key"
)

// KeyStore abstracts the OS keyring, so tests can stub it.
type KeyStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// licenseStore is the active store; replaced by tests.
var licenseStore KeyStore = osKeyring{}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "NovelPlay")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "NovelPlay")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "novelplay")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. The license key is loaded from the keyring and
// returned separately; it never lives inside the struct.
func Load() (PlayerConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg PlayerConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	key, _ := licenseStore.Get(keyringService, keyringLicense)
	return cfg, key, nil
}

// Save writes the user config YAML and persists the license key into the OS
// keyring (if non-empty).
func Save(cfg PlayerConfig, licenseKey string) error {
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
	if licenseKey != "" {
		if err := licenseStore.Set(keyringService, keyringLicense, licenseKey); err != nil {
			return err
		}
	}
	return nil
}

// ForgetLicenseKey removes the stored license key from the keyring.
func ForgetLicenseKey() error {
	return licenseStore.Delete(keyringService, keyringLicense)
}

func mergeInto(dst *PlayerConfig, src *PlayerConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Playback.FPS > 0 {
		dst.Playback.FPS = src.Playback.FPS
	}
	if src.Playback.WindowScale > 0 {
		dst.Playback.WindowScale = src.Playback.WindowScale
	}
	dst.Playback.Mute = src.Playback.Mute
	// volumes: zero is a valid value, but an absent section unmarshals to all
	// zeros; treat an all-zero block as "not configured"
	if src.Volume != (VolumeConfig{}) {
		dst.Volume = clampVolumes(src.Volume)
	}
	dst.Remote.Enabled = src.Remote.Enabled
	if src.Remote.BaseURL != "" {
		dst.Remote.BaseURL = src.Remote.BaseURL
	}
	if src.Remote.TimeoutMs != 0 {
		dst.Remote.TimeoutMs = src.Remote.TimeoutMs
	}
	dst.Remote.TLSInsecure = src.Remote.TLSInsecure
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func clampVolumes(v VolumeConfig) VolumeConfig {
	clamp := func(n int) int {
		if n < 0 {
			return 0
		}
		if n > 100 {
			return 100
		}
		return n
	}
	return VolumeConfig{Music: clamp(v.Music), FX: clamp(v.FX), Voice: clamp(v.Voice), Text: clamp(v.Text)}
}

func applyEnvOverrides(cfg *PlayerConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvFPS)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Playback.FPS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMute)); v != "" {
		cfg.Playback.Mute = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteURL)); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteTimeout)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Remote.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteTLSInsec)); v != "" {
		cfg.Remote.TLSInsecure = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteEnabled)); v != "" {
		cfg.Remote.Enabled = truthy(v)
	}
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
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
