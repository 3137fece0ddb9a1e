package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"finch-command-runner/internal/executor"
)

const (
	DeviceSim  = "sim"
	DeviceHTTP = "http"
)

type Runtime struct {
	CommandsFile    string
	SettingsFile    string
	Device          string
	DeviceURL       string
	DeviceToken     string
	Executor        executor.Config
	ConnectFeedback bool
	SimRealTime     bool
	LogFormat       string
	LogLevel        string
}

// Settings is the optional YAML file overriding executor constants.
type Settings struct {
	MotorSpeed    *int    `yaml:"motor_speed"`
	LEDBrightness *int    `yaml:"led_brightness"`
	Delay         *string `yaml:"delay"`
	CallTimeout   *string `yaml:"call_timeout"`
}

// LoadRuntime reads configuration with precedence defaults < settings file < environment.
func LoadRuntime() (Runtime, error) {
	cfg := Runtime{
		CommandsFile: getenvDefault("FINCH_COMMANDS_FILE", "FinchCommands01.txt"),
		SettingsFile: os.Getenv("FINCH_SETTINGS_FILE"),
		Device:       strings.ToLower(getenvDefault("FINCH_DEVICE", DeviceSim)),
		DeviceURL:    os.Getenv("FINCH_DEVICE_URL"),
		DeviceToken:  os.Getenv("FINCH_DEVICE_TOKEN"),
		Executor:     executor.DefaultConfig(),
		LogFormat:    getenvDefault("FINCH_LOG_FORMAT", "text"),
		LogLevel:     getenvDefault("FINCH_LOG_LEVEL", "info"),
	}
	if cfg.SettingsFile != "" {
		s, err := LoadSettings(cfg.SettingsFile)
		if err != nil {
			return Runtime{}, err
		}
		if err := s.Apply(&cfg.Executor); err != nil {
			return Runtime{}, err
		}
	}

	var err error
	if cfg.Executor.MotorSpeed, err = readIntEnv("FINCH_MOTOR_SPEED", cfg.Executor.MotorSpeed); err != nil {
		return Runtime{}, err
	}
	if cfg.Executor.LEDBrightness, err = readIntEnv("FINCH_LED_BRIGHTNESS", cfg.Executor.LEDBrightness); err != nil {
		return Runtime{}, err
	}
	if cfg.Executor.DelayDuration, err = readDurationEnv("FINCH_DELAY", cfg.Executor.DelayDuration); err != nil {
		return Runtime{}, err
	}
	if cfg.Executor.CallTimeout, err = readDurationEnv("FINCH_CALL_TIMEOUT", cfg.Executor.CallTimeout); err != nil {
		return Runtime{}, err
	}
	if cfg.ConnectFeedback, err = readBoolEnv("FINCH_CONNECT_FEEDBACK", false); err != nil {
		return Runtime{}, err
	}
	if cfg.SimRealTime, err = readBoolEnv("FINCH_SIM_REALTIME", false); err != nil {
		return Runtime{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Runtime{}, err
	}
	return cfg, nil
}

func (r Runtime) Validate() error {
	switch r.Device {
	case DeviceSim:
	case DeviceHTTP:
		if r.DeviceURL == "" || r.DeviceToken == "" {
			return errors.New("FINCH_DEVICE_URL and FINCH_DEVICE_TOKEN must be set for the http device")
		}
	default:
		return fmt.Errorf("unsupported device %q", r.Device)
	}
	return validateExecutor(r.Executor)
}

// LoadSettings decodes a settings file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings %s: %w", path, err)
	}
	return s, nil
}

// Apply overlays the keys present in s onto cfg.
func (s Settings) Apply(cfg *executor.Config) error {
	if s.MotorSpeed != nil {
		cfg.MotorSpeed = *s.MotorSpeed
	}
	if s.LEDBrightness != nil {
		cfg.LEDBrightness = *s.LEDBrightness
	}
	if s.Delay != nil {
		d, err := time.ParseDuration(*s.Delay)
		if err != nil {
			return fmt.Errorf("settings delay: %w", err)
		}
		cfg.DelayDuration = d
	}
	if s.CallTimeout != nil {
		d, err := time.ParseDuration(*s.CallTimeout)
		if err != nil {
			return fmt.Errorf("settings call_timeout: %w", err)
		}
		cfg.CallTimeout = d
	}
	return nil
}

func validateExecutor(c executor.Config) error {
	if c.MotorSpeed < 0 || c.MotorSpeed > 255 {
		return fmt.Errorf("motor speed %d out of range 0..255", c.MotorSpeed)
	}
	if c.LEDBrightness < 0 || c.LEDBrightness > 255 {
		return fmt.Errorf("led brightness %d out of range 0..255", c.LEDBrightness)
	}
	if c.DelayDuration < 0 {
		return errors.New("delay must not be negative")
	}
	if c.CallTimeout < 0 {
		return errors.New("call timeout must not be negative")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func readIntEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func readDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func readBoolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}
