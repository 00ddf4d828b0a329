package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/secmon-lab/cogsmith/pkg/cli/config"
	httpctrl "github.com/secmon-lab/cogsmith/pkg/controller/http"
	"github.com/secmon-lab/cogsmith/pkg/service/completion"
	"github.com/secmon-lab/cogsmith/pkg/usecase"
	"github.com/secmon-lab/cogsmith/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func cmdServe() *cli.Command {
	var addr string
	var followUpGate bool
	var repoCfg config.Repository
	var llmCfg config.LLM
	var pipelineCfg config.Pipeline
	var authCfg config.Auth
	var artifactCfg config.Artifact

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("COGSMITH_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "follow-up-gate",
			Usage:       "Refuse new sessions while the user has sessions needing follow-up",
			Value:       true,
			Sources:     cli.EnvVars("COGSMITH_FOLLOW_UP_GATE"),
			Destination: &followUpGate,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, artifactCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Serve configuration",
				"addr", addr,
				"follow_up_gate", followUpGate,
				"repository", repoCfg,
				"llm", llmCfg,
				"pipeline", pipelineCfg,
				"auth", authCfg,
				"artifact", artifactCfg,
			)

			pipeline, err := pipelineCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load pipeline configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			authn, err := authCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}

			validator := pipeline.NewValidator()
			ucOpts := []usecase.Option{
				usecase.WithValidator(validator),
				usecase.WithAuthorizer(authCfg.Authorizer()),
				usecase.WithFollowUpGate(followUpGate),
			}

			provider, closeProvider, err := llmCfg.Configure(ctx, pipeline.Models)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM provider")
			}
			defer closeProvider()
			if provider != nil {
				svc := completion.New(provider, pipeline.CompletionOptions(validator)...)
				ucOpts = append(ucOpts, usecase.WithCompletion(svc))
				logger.Info("Completion enabled", "provider", llmCfg.Provider())
			}

			exporter, err := artifactCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure artifact export")
			}
			if exporter != nil {
				defer func() {
					if err := exporter.Close(); err != nil {
						logger.Error("failed to close artifact exporter", "error", err.Error())
					}
				}()
				ucOpts = append(ucOpts, usecase.WithExporter(exporter))
				logger.Info("Artifact export enabled")
			}

			uc := usecase.New(repo, ucOpts...)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpctrl.WithAuthenticator(authn)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				logger.Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "failed to start server", goerr.V("addr", addr))
				}
				return nil
			})
			eg.Go(func() error {
				<-ctx.Done()
				logger.Info("Shutting down HTTP server")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logger.Info("Server shutdown completed")
				return nil
			})

			return eg.Wait()
		},
	}
}
