package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"shrink/auth"
)

// Config holds every setting the server reads at startup.
type Config struct {
	ListenAddr        string   `yaml:"listen_addr"`
	DataDir           string   `yaml:"data_dir"`
	WorkDir           string   `yaml:"work_dir"`
	LogFile           string   `yaml:"log_file"`
	LogLevel          string   `yaml:"log_level"`
	MaxUploadMB       int      `yaml:"max_upload_mb"`
	AuthSecret        string   `yaml:"auth_secret"`
	AuthIssuer        string   `yaml:"auth_issuer"`
	AllowedExtensions []string `yaml:"allowed_extensions"`

	Image       ImageConfig       `yaml:"image"`
	Compression CompressionConfig `yaml:"compression"`
	Video       VideoConfig       `yaml:"video"`
	History     HistoryConfig     `yaml:"history"`
	Sinks       []SinkConfig      `yaml:"sinks"`
}

type ImageConfig struct {
	Encoder       string `yaml:"encoder"` // auto, native or magick
	Quality       int    `yaml:"quality"`
	ResizePercent int    `yaml:"resize_percent"`
	MaxPixels     int    `yaml:"max_pixels"` // width*height accepted for decoding
}

type CompressionConfig struct {
	Algorithm string `yaml:"algorithm"`
	Level     int    `yaml:"level"`
}

type VideoConfig struct {
	FFmpegPath   string `yaml:"ffmpeg_path"`
	FFprobePath  string `yaml:"ffprobe_path"`
	Codec        string `yaml:"codec"`
	AudioBitrate string `yaml:"audio_bitrate"`
	TargetMB     int    `yaml:"target_mb"`
}

type HistoryConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// SinkConfig describes one export destination. Options are passed through
// to the backend untouched (bucket, region, host, dir, ...).
type SinkConfig struct {
	Name    string            `yaml:"name"`
	Type    string            `yaml:"type"` // directory, s3, gcs, sftp
	Options map[string]string `yaml:"options"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr:        ":8080",
		DataDir:           getDataDir(),
		WorkDir:           getWorkDir(),
		LogLevel:          "info",
		MaxUploadMB:       200,
		AuthIssuer:        "shrink",
		AllowedExtensions: []string{"jpg", "jpeg", "png", "mp4", "mov"},
		Image: ImageConfig{
			Encoder:       "auto",
			Quality:       85,
			ResizePercent: 100,
			MaxPixels:     50_000_000,
		},
		Compression: CompressionConfig{
			Algorithm: "zlib",
			Level:     9,
		},
		Video: VideoConfig{
			FFmpegPath:   "ffmpeg",
			FFprobePath:  "ffprobe",
			Codec:        "libx264",
			AudioBitrate: "128k",
			TargetMB:     10,
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// SHRINK_CONFIG (if any), then SHRINK_* environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("SHRINK_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file on top of the defaults without consulting the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"SHRINK_LISTEN_ADDR":   &c.ListenAddr,
		"SHRINK_DATA_DIR":      &c.DataDir,
		"SHRINK_WORK_DIR":      &c.WorkDir,
		"SHRINK_LOG_FILE":      &c.LogFile,
		"SHRINK_LOG_LEVEL":     &c.LogLevel,
		"SHRINK_AUTH_SECRET":   &c.AuthSecret,
		"SHRINK_AUTH_ISSUER":   &c.AuthIssuer,
		"SHRINK_IMAGE_ENCODER": &c.Image.Encoder,
		"SHRINK_ALGORITHM":     &c.Compression.Algorithm,
		"SHRINK_FFMPEG_PATH":   &c.Video.FFmpegPath,
		"SHRINK_FFPROBE_PATH":  &c.Video.FFprobePath,
		"SHRINK_VIDEO_CODEC":   &c.Video.Codec,
		"SHRINK_AUDIO_BITRATE": &c.Video.AudioBitrate,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SHRINK_MAX_UPLOAD_MB":     &c.MaxUploadMB,
		"SHRINK_IMAGE_QUALITY":     &c.Image.Quality,
		"SHRINK_RESIZE_PERCENT":    &c.Image.ResizePercent,
		"SHRINK_IMAGE_MAX_PIXELS":  &c.Image.MaxPixels,
		"SHRINK_LEVEL":             &c.Compression.Level,
		"SHRINK_TARGET_MB":         &c.Video.TargetMB,
		"SHRINK_HISTORY_RETENTION": &c.History.RetentionDays,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}

	if v := os.Getenv("SHRINK_HISTORY_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SHRINK_HISTORY_ENABLED: %w", err)
		}
		c.History.Enabled = b
	}

	if v := os.Getenv("SHRINK_ALLOWED_EXTENSIONS"); v != "" {
		var exts []string
		for _, ext := range strings.Split(v, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				exts = append(exts, ext)
			}
		}
		c.AllowedExtensions = exts
	}
	return nil
}

// Validate checks the settings that cannot be clamped into range.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr must not be empty")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	if c.AuthSecret != "" && len(c.AuthSecret) < auth.MinSecretLen {
		return fmt.Errorf("auth_secret must be at least %d bytes, got %d", auth.MinSecretLen, len(c.AuthSecret))
	}
	if c.Image.MaxPixels <= 0 {
		return fmt.Errorf("image.max_pixels must be positive, got %d", c.Image.MaxPixels)
	}
	switch c.Image.Encoder {
	case "auto", "native", "magick":
	default:
		return fmt.Errorf("unknown image encoder %q", c.Image.Encoder)
	}
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sink %d (%s) has no type", i, s.Name)
		}
	}
	for i, ext := range c.AllowedExtensions {
		c.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(ext, "."))
	}
	return nil
}

// MaxUploadBytes is MaxUploadMB expressed in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
