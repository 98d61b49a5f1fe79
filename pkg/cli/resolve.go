package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/cli/config"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/domain/types"
	"github.com/secmon-lab/adsafe/pkg/service/snapshot"
	"github.com/secmon-lab/adsafe/pkg/usecase"
	"github.com/secmon-lab/adsafe/pkg/utils/logging"
	"github.com/secmon-lab/adsafe/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func cmdResolve() *cli.Command {
	var output string
	var repoCfg config.Repository
	var snapshotCfg config.Snapshot

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output format (text, json, yaml)",
			Value:       outputText,
			Destination: &output,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, snapshotCfg.Flags()...)

	return &cli.Command{
		Name:  "resolve",
		Usage: "Print the rule set the engine would serve right now",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			switch output {
			case outputText, outputJSON, outputYAML:
			default:
				return goerr.Wrap(config.ErrInvalidEnum, "unsupported output format",
					goerr.V(config.EnumFieldKey, "output"), goerr.V(config.EnumValueKey, output))
			}

			repo, closeRepo, err := openRepository(ctx, &repoCfg, false)
			if err != nil {
				return err
			}
			defer closeRepo()

			ucOpts := []usecase.Option{usecase.WithStoreTimeout(repoCfg.StoreTimeout())}
			store, err := snapshotCfg.Configure(ctx)
			if err != nil {
				return err
			}
			if store != nil {
				defer safe.Close(ctx, store, "resource", "snapshot")
				ucOpts = append(ucOpts, usecase.WithSnapshot(store))
			}

			res := usecase.New(repo, ucOpts...).Resolver.Resolve(ctx)
			logging.From(ctx).Info("Rule set resolved", "source", res.Source, "rules", len(res.Rules))

			w := c.Root().Writer
			switch output {
			case outputJSON:
				return writeRules(w, res.Rules, snapshot.FormatJSON)
			case outputYAML:
				return writeRules(w, res.Rules, snapshot.FormatYAML)
			default:
				return printRules(w, res)
			}
		},
	}
}

func writeRules(w io.Writer, rules []model.DecodedRule, format snapshot.Format) error {
	data, err := snapshot.Marshal(rules, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return goerr.Wrap(err, "failed to write rules")
	}
	return nil
}

var levelColors = map[types.RiskLevel]*color.Color{
	types.RiskLevelHigh:   color.New(color.FgRed, color.Bold),
	types.RiskLevelMedium: color.New(color.FgYellow),
	types.RiskLevelLow:    color.New(color.FgGreen),
}

func printRules(w io.Writer, res *usecase.Resolution) error {
	header := color.New(color.Bold)
	if _, err := header.Fprintf(w, "source: %s  rules: %d\n", res.Source, len(res.Rules)); err != nil {
		return goerr.Wrap(err, "failed to write header")
	}

	for _, r := range res.Rules {
		level := string(r.RiskLevel)
		if c, ok := levelColors[r.RiskLevel]; ok {
			level = c.Sprint(level)
		}

		category := strings.Join(nonEmpty(r.Level1, r.Level2, r.Level3), " > ")
		if _, err := fmt.Fprintf(w, "%-10s %-8s %s\n", r.RiskCode, level, category); err != nil {
			return goerr.Wrap(err, "failed to write rule")
		}
		if len(r.Keywords) > 0 {
			if _, err := fmt.Fprintf(w, "    keywords: %s\n", strings.Join(r.Keywords, ", ")); err != nil {
				return goerr.Wrap(err, "failed to write rule")
			}
		}
		if len(r.Regex) > 0 {
			if _, err := fmt.Fprintf(w, "    regex:    %s\n", strings.Join(r.Regex, ", ")); err != nil {
				return goerr.Wrap(err, "failed to write rule")
			}
		}
	}
	return nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
