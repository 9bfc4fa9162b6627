package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mgkeit/pairalert/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-k string   bot API token
//	-d string   PostgreSQL DSN
//	-t int      session idle timeout, seconds
//	-m int      sensitive message TTL, seconds
//	-w string   sweeper cron spec
//	-i string   TOTP issuer label
//	-A string   comma-separated admin principal IDs
//	-C string   comma-separated curator principal IDs
//
// The argument list is pre-filtered with flagx.FilterArgs so this parse
// does not collide with the -c/-config flags handled by parseJSON.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-k", "-d", "-t", "-m", "-w", "-i", "-A", "-C"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.BotToken, "k", config.BotToken, "bot API token")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SweepSpec, "w", config.SweepSpec, "stale-session sweep cron spec")
	fs.StringVar(&config.TOTPIssuer, "i", config.TOTPIssuer, "TOTP issuer label")

	sessionTimeout := fs.Int("t", int(config.SessionTimeout.Seconds()), "session idle timeout (in seconds)")
	sensitiveTTL := fs.Int("m", int(config.SensitiveMessageTTL.Seconds()), "sensitive message TTL (in seconds)")

	admins := fs.String("A", "", "comma-separated admin IDs")
	curators := fs.String("C", "", "comma-separated curator IDs")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTimeout = time.Duration(*sessionTimeout) * time.Second
	config.SensitiveMessageTTL = time.Duration(*sensitiveTTL) * time.Second

	if *admins != "" {
		config.Admins = ParseIDList(*admins)
	}
	if *curators != "" {
		config.Curators = ParseIDList(*curators)
	}
}

// ParseIDList parses a comma/semicolon/space-separated list of numeric
// principal IDs, silently skipping malformed entries.
func ParseIDList(raw string) []int64 {
	cleaned := strings.NewReplacer("\n", ",", ";", ",", " ", ",").Replace(raw)

	var ids []int64
	for _, part := range strings.Split(cleaned, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
