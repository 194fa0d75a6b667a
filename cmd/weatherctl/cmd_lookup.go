package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"weather-agent/internal/config"
	"weather-agent/internal/domain"
	"weather-agent/internal/integrations/weather"
	"weather-agent/internal/trigger"
	"weather-agent/internal/usecase"
)

var lookupFlags struct {
	configPath string
	keyword    string
	verbose    bool
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <text>",
	Short: "Resolve the place named in text and print its short forecast",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup,
}

func init() {
	f := lookupCmd.Flags()
	f.StringVar(&lookupFlags.configPath, "config", "", "YAML config file")
	f.StringVar(&lookupFlags.keyword, "keyword", "", "Trigger keyword (overrides config)")
	f.BoolVarP(&lookupFlags.verbose, "verbose", "v", false, "Log every lookup stage")
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	var err error
	if lookupFlags.configPath != "" {
		if cfg, err = config.LoadFile(cfg, lookupFlags.configPath); err != nil {
			return err
		}
	}
	if cfg, err = config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return err
	}
	if lookupFlags.keyword != "" {
		cfg.Keyword = lookupFlags.keyword
	}

	logger, err := newLogger(lookupFlags.verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := weather.NewClient(
		weather.WithGeocodeBaseURL(cfg.GeocodeBaseURL),
		weather.WithWeatherBaseURL(cfg.WeatherBaseURL),
		weather.WithUserAgent(cfg.UserAgent),
		weather.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	)
	if err != nil {
		return err
	}
	filter, err := trigger.New(cfg.Keyword)
	if err != nil {
		return err
	}
	pipeline, err := usecase.NewPipeline(client, logger)
	if err != nil {
		return err
	}
	session, err := usecase.NewSession(usecase.SessionConfig{
		ID:       uuid.NewString(),
		Filter:   filter,
		Pipeline: pipeline,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	feed := usecase.NewMemoryFeed()
	detach := session.Attach(cmd.Context(), feed)
	defer detach()

	feed.SetState(domain.StateConnected)
	feed.Append(domain.ConversationTurn{
		ID:            uuid.NewString(),
		InteractionID: uuid.NewString(),
		Text:          strings.Join(args, " "),
		Origin:        domain.OriginUser,
	})
	session.Wait()

	out := cmd.OutOrStdout()
	state := session.State()
	if len(state.Handled) == 0 && state.Result.Location == "" {
		if !strings.Contains(strings.ToLower(strings.Join(args, " ")), filter.Keyword()) {
			return fmt.Errorf("text does not mention %q", filter.Keyword())
		}
		return errors.New("lookup failed: place could not be resolved (run with -v for details)")
	}
	fmt.Fprintf(out, "Location: %s\n", state.Result.Location)
	if state.Result.Forecast == "" {
		return errors.New("lookup failed: no forecast (run with -v for details)")
	}
	fmt.Fprintf(out, "Forecast: %s\n", state.Result.Forecast)
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
