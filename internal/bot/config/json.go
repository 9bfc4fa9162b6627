package config

import (
	"encoding/json"
	"os"

	"github.com/mgkeit/pairalert/internal/flagx"
	"github.com/mgkeit/pairalert/internal/timex"
)

// JSONConfig is the DTO for reading JSON configuration files. Interval
// fields use timex.Duration so files may contain either "90s" strings
// or integer nanoseconds. After unmarshalling, values are copied into
// the runtime Config.
type JSONConfig struct {
	BotToken            string         `json:"bot_token"`
	DatabaseDSN         string         `json:"database_dsn"`
	SessionTimeout      timex.Duration `json:"session_timeout"`
	SensitiveMessageTTL timex.Duration `json:"sensitive_message_ttl"`
	SweepSpec           string         `json:"sweep_spec"`
	TOTPIssuer          string         `json:"totp_issuer"`
	Admins              []int64        `json:"admins"`
	Curators            []int64        `json:"curators"`
}

// parseJSON loads configuration values from the JSON file given via the
// -c or -config flags. When neither flag is set, nothing is loaded.
// Unreadable or invalid files panic: a misconfigured bot must not start.
func parseJSON(config *Config) {
	jsonConfigFile := flagx.JSONConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JSONConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.BotToken != "" {
		config.BotToken = c.BotToken
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SessionTimeout.Duration != 0 {
		config.SessionTimeout = c.SessionTimeout.Duration
	}
	if c.SensitiveMessageTTL.Duration != 0 {
		config.SensitiveMessageTTL = c.SensitiveMessageTTL.Duration
	}
	if c.SweepSpec != "" {
		config.SweepSpec = c.SweepSpec
	}
	if c.TOTPIssuer != "" {
		config.TOTPIssuer = c.TOTPIssuer
	}
	if len(c.Admins) > 0 {
		config.Admins = c.Admins
	}
	if len(c.Curators) > 0 {
		config.Curators = c.Curators
	}
}
