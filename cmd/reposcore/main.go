// Command reposcore searches version control hosts for repositories and
// ranks them by popularity and activity.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/reposcore/config"
	"github.com/jonwraymond/reposcore/health"
	"github.com/jonwraymond/reposcore/observe"
	"github.com/jonwraymond/reposcore/search"
	"github.com/jonwraymond/reposcore/vcs"
)

// errReported marks a failure already written to stdout.
var errReported = errors.New("reported")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(config.Options{})
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(loadOpts config.Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "reposcore",
		Short:         "Search repositories and rank them by stars, forks and recency",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&loadOpts.Path, "config", "", "Optional YAML config file")

	root.AddCommand(searchCmd(&loadOpts), healthCmd(&loadOpts))
	return root
}

// withApp loads configuration, builds the app, runs fn and releases the
// app's resources.
func withApp(ctx context.Context, loadOpts *config.Options, fn func(context.Context, *app) error) error {
	cfg, err := config.Load(ctx, *loadOpts)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.Close(shutdownCtx); err != nil {
			a.tel.Logger.Warn(shutdownCtx, "shutdown incomplete", observe.Err(err))
		}
	}()
	return fn(ctx, a)
}

func searchCmd(loadOpts *config.Options) *cobra.Command {
	var (
		params   vcs.SearchParams
		provider string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search repositories and print them ranked by score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), loadOpts, func(ctx context.Context, a *app) error {
				logger := a.tel.Logger.WithComponent("cli")
				requestID := uuid.NewString()
				logger.Info(ctx, "search started",
					observe.F("request_id", requestID),
					observe.F("provider", provider),
					observe.F("language", params.Language),
					observe.F("created_from", params.CreatedFrom),
				)

				resp, err := runSearch(ctx, a.search, provider, params)
				if err != nil {
					body := vcs.Describe(err)
					logger.Warn(ctx, "search failed",
						observe.F("request_id", requestID),
						observe.F("code", body.Code),
						observe.Err(err),
					)
					if werr := writeJSON(cmd.OutOrStdout(), body); werr != nil {
						return werr
					}
					return errReported
				}
				logger.Info(ctx, "search completed",
					observe.F("request_id", requestID),
					observe.F("items", len(resp.Items)),
				)
				return writeJSON(cmd.OutOrStdout(), resp.Rounded())
			})
		},
	}
	cmd.Flags().StringVar(&params.Language, "language", "", "Repository language")
	cmd.Flags().StringVar(&params.CreatedFrom, "created-from", "", "Earliest creation date, YYYY-MM-DD")
	cmd.Flags().IntVar(&params.PerPage, "per-page", 0, "Results per page (default 50, max 100)")
	cmd.Flags().IntVar(&params.Page, "page", 0, "Page number (default 1)")
	_ = cmd.MarkFlagRequired("language")
	_ = cmd.MarkFlagRequired("created-from")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider kind: github or gitlab (default: first registered)")
	return cmd
}

func runSearch(ctx context.Context, svc *search.Service, provider string, params vcs.SearchParams) (*search.Response, error) {
	if provider == "" {
		return svc.SearchRepositoriesScored(ctx, params)
	}
	kind, err := vcs.ParseKind(provider)
	if err != nil {
		return nil, &vcs.BadRequestError{Code: vcs.CodeBadRequest, Message: err.Error()}
	}
	return svc.SearchRepositoriesScoredWith(ctx, kind, params)
}

func healthCmd(loadOpts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the cache backend and upstream quota",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), loadOpts, func(ctx context.Context, a *app) error {
				report := a.health.CheckAll(ctx)
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if report.Status == health.StatusUnhealthy {
					return errReported
				}
				return nil
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
