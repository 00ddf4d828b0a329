package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/cogsmith/pkg/cli/config"
	"github.com/secmon-lab/cogsmith/pkg/service/codecheck"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// ErrInvalidPlugin is returned when at least one plugin file fails validation
var ErrInvalidPlugin = goerr.New("plugin validation failed")

func cmdValidate() *cli.Command {
	var pipelineCfg config.Pipeline
	var enhance bool

	flags := pipelineCfg.Flags()
	flags = append(flags, &cli.BoolFlag{
		Name:        "enhance",
		Usage:       "Print the enhanced code of each plugin file",
		Destination: &enhance,
	})

	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate the pipeline configuration and plugin files",
		ArgsUsage: "[plugin.py ...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			pipeline, err := pipelineCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}
			if pipelineCfg.Path() != "" {
				logger.Info("Pipeline configuration validation passed", "path", pipelineCfg.Path())
			}

			validator := pipeline.NewValidator()
			w := c.Root().Writer
			if w == nil {
				w = os.Stdout
			}

			var failed int
			for _, path := range c.Args().Slice() {
				// #nosec G304 - path is provided by CLI argument
				data, err := os.ReadFile(path)
				if err != nil {
					return goerr.Wrap(err, "failed to read plugin file", goerr.V("path", path))
				}

				code := string(data)
				report := validator.Validate(code)
				printReport(w, path, report)
				if !report.IsValid {
					failed++
				}

				if enhance {
					if enhanced, changed := validator.Enhance(code); changed {
						_, _ = fmt.Fprintf(w, "\n--- enhanced %s ---\n%s\n", path, enhanced)
					}
				}
			}

			if failed > 0 {
				return goerr.Wrap(ErrInvalidPlugin, "plugin files have errors", goerr.V("failed", failed))
			}
			return nil
		},
	}
}

var (
	errColor     = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	suggestColor = color.New(color.FgCyan)
	okColor      = color.New(color.FgGreen, color.Bold)
)

func printReport(w io.Writer, path string, report *codecheck.Report) {
	status := okColor.Sprint("VALID")
	if !report.IsValid {
		status = errColor.Sprint("INVALID")
	}
	_, _ = fmt.Fprintf(w, "%s: %s (score %d/100)\n", path, status, report.Score)

	for _, issue := range report.Issues() {
		var c *color.Color
		switch issue.Severity {
		case codecheck.SeverityError:
			c = errColor
		case codecheck.SeverityWarning:
			c = warnColor
		default:
			c = suggestColor
		}
		_, _ = fmt.Fprintf(w, "  %s %s: %s\n", c.Sprintf("%-10s", issue.Severity), issue.Category, issue.Message)
	}
}
