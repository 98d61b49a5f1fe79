package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/utils/errutil"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Sentry holds CLI flags for error reporting
type Sentry struct {
	dsn string `masq:"secret"`
	env string
}

func (s *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Category:    "Sentry",
			Usage:       "Sentry DSN for error reporting (disabled when empty)",
			Sources:     cli.EnvVars("ADSAFE_SENTRY_DSN"),
			Destination: &s.dsn,
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Category:    "Sentry",
			Usage:       "Sentry environment name",
			Value:       "production",
			Sources:     cli.EnvVars("ADSAFE_SENTRY_ENV"),
			Destination: &s.env,
		},
	}
}

// Configure initializes Sentry. The returned function flushes pending events.
func (s *Sentry) Configure() (func(), error) {
	if s.dsn == "" {
		return func() {}, nil
	}
	if err := errutil.InitSentry(s.dsn, s.env); err != nil {
		return nil, goerr.Wrap(err, "failed to configure sentry")
	}
	logging.Default().Info("Sentry error reporting enabled", "env", s.env)
	return func() { errutil.FlushSentry(2 * time.Second) }, nil
}
