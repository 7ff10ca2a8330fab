package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSocketPath      = "/ws"
	DefaultStalenessWindow = 48 * time.Hour
	DefaultSweepSchedule   = "0 */2 * * *"
)

type Config struct {
	DatabaseDSN     string
	ServerAddr      string
	SigningKey      []byte
	AllowedOrigins  []string
	SocketPath      string
	StalenessWindow time.Duration
	SweepSchedule   string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty key")
	}

	return key, nil
}

// NewConfig validates the raw settings and returns a Config. An empty socket
// path, a zero staleness window or an empty sweep schedule fall back to the
// package defaults.
func NewConfig(
	serverAddr, databaseDSN, base64Secret string,
	allowedOrigins []string,
	socketPath string,
	stalenessWindow time.Duration,
	sweepSchedule string,
) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if !strings.HasPrefix(socketPath, "/") {
		return nil, fmt.Errorf("socket path must start with '/': %q", socketPath)
	}

	if stalenessWindow == 0 {
		stalenessWindow = DefaultStalenessWindow
	}
	if stalenessWindow < 0 {
		return nil, fmt.Errorf("staleness window cannot be negative")
	}

	if sweepSchedule == "" {
		sweepSchedule = DefaultSweepSchedule
	}
	if _, err := cron.ParseStandard(sweepSchedule); err != nil {
		return nil, fmt.Errorf("parse sweep schedule: %w", err)
	}

	return &Config{
		DatabaseDSN:     databaseDSN,
		ServerAddr:      serverAddr,
		SigningKey:      signingKey,
		AllowedOrigins:  allowedOrigins,
		SocketPath:      socketPath,
		StalenessWindow: stalenessWindow,
		SweepSchedule:   sweepSchedule,
	}, nil
}
