package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/service/snapshot"
	"github.com/urfave/cli/v3"
)

// Snapshot holds CLI flags for the static rule snapshot
type Snapshot struct {
	location string
	format   string
}

func (s *Snapshot) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "snapshot",
			Category:    "Snapshot",
			Usage:       "Snapshot location: local file path or gs://bucket/object",
			Sources:     cli.EnvVars("ADSAFE_SNAPSHOT"),
			Destination: &s.location,
		},
		&cli.StringFlag{
			Name:        "snapshot-format",
			Category:    "Snapshot",
			Usage:       "Snapshot format (json, yaml). Inferred from the extension when empty",
			Sources:     cli.EnvVars("ADSAFE_SNAPSHOT_FORMAT"),
			Destination: &s.format,
		},
	}
}

// Location returns the configured snapshot location
func (s *Snapshot) Location() string {
	return s.location
}

// IsConfigured reports whether a snapshot location was given
func (s *Snapshot) IsConfigured() bool {
	return s.location != ""
}

// Configure opens the snapshot store. It returns nil when no location is configured.
func (s *Snapshot) Configure(ctx context.Context) (*snapshot.Store, error) {
	if s.location == "" {
		return nil, nil
	}

	var opts []snapshot.Option
	switch snapshot.Format(s.format) {
	case "":
	case snapshot.FormatJSON, snapshot.FormatYAML:
		opts = append(opts, snapshot.WithFormat(snapshot.Format(s.format)))
	default:
		return nil, goerr.Wrap(ErrInvalidEnum, "unsupported snapshot format",
			goerr.V(EnumFieldKey, "snapshot-format"), goerr.V(EnumValueKey, s.format))
	}

	store, err := snapshot.New(ctx, s.location, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open snapshot", goerr.V("location", s.location))
	}
	return store, nil
}
