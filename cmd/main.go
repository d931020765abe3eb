package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"issvis/internal/caldav"
	"issvis/internal/config"
	"issvis/internal/export"
	"issvis/internal/finder"
	"issvis/internal/geocode"
	"issvis/internal/google"
	"issvis/internal/opennotify"
	"issvis/internal/report"
	"issvis/internal/rest"
	"issvis/internal/sunrise"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	"golang.org/x/term"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "issvis",
		Usage: "Find ISS passes you can see during your upcoming calendar events.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to a YAML config file."},
		},
		Commands: []*cli.Command{
			authCommand(),
			passesCommand(),
		},
		DefaultCommand: "passes",
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account and cache the calendar token.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("the auth command is interactive and must be run from a terminal")
			}

			logger.Info("Starting Google authentication flow.")
			oauthConfig, err := google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.ClientSecretFile)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			if err := google.SaveToken(cfg.Google.TokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", cfg.Google.TokenFile)
			return nil
		},
	}
}

func passesCommand() *cli.Command {
	return &cli.Command{
		Name:  "passes",
		Usage: "List visible, sunlit and out-of-window ISS passes for upcoming events.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Usage: "Event source: google or caldav."},
			&cli.StringFlag{Name: "calendar", Usage: "Google calendar ID or CalDAV calendar name."},
			&cli.IntFlag{Name: "max-events", Usage: "Number of upcoming events to check."},
			&cli.BoolFlag{Name: "json", Usage: "Print results as JSON."},
			&cli.StringFlag{Name: "ics-out", Usage: "Also write visible passes to this iCalendar file."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if c.IsSet("source") {
				cfg.Source = c.String("source")
			}
			if c.IsSet("calendar") {
				cfg.Google.CalendarID = c.String("calendar")
				cfg.CalDAV.CalendarName = c.String("calendar")
			}
			if c.IsSet("max-events") {
				cfg.MaxEvents = c.Int("max-events")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			events, err := newEventSource(c.Context, logger, cfg)
			if err != nil {
				return err
			}

			httpClient := rest.NewClient(logger, rest.Options{
				Timeout:   cfg.Services.Timeout,
				Retries:   cfg.Services.Retries,
				RetryWait: rest.DefaultOptions().RetryWait,
			})
			f := finder.New(logger,
				events,
				geocode.NewClient(logger, httpClient, cfg.Services.GeocodeURL, cfg.Services.GeocodeAPIKey),
				sunrise.NewClient(logger, httpClient, cfg.Services.SunriseURL),
				opennotify.NewClient(logger, httpClient, cfg.Services.PassesURL),
				finder.Options{MaxEvents: cfg.MaxEvents, MaxPasses: cfg.MaxPasses},
			)

			results, err := f.Run(c.Context)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				err = report.WriteJSON(os.Stdout, results)
			} else {
				err = report.WriteText(os.Stdout, results)
			}
			if err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			if out := c.String("ics-out"); out != "" {
				if err := writeICS(logger, out, results); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newEventSource(ctx context.Context, logger *slog.Logger, cfg *config.Config) (finder.EventSource, error) {
	switch cfg.Source {
	case config.SourceCalDAV:
		client, err := caldav.NewClient(ctx, logger, caldav.Options{
			Endpoint:     cfg.CalDAV.Endpoint,
			Username:     cfg.CalDAV.Username,
			Password:     cfg.CalDAV.Password,
			CalendarName: cfg.CalDAV.CalendarName,
			Lookahead:    time.Duration(cfg.CalDAV.LookaheadDays) * 24 * time.Hour,
			Location:     cfg.Location(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		return client, nil
	default:
		oauthConfig, err := google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.ClientSecretFile)
		if err != nil {
			return nil, fmt.Errorf("failed to get google oauth config: %w", err)
		}
		client, err := google.NewClient(ctx, logger, oauthConfig, cfg.Google.TokenFile, cfg.Google.CalendarID)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client: %w", err)
		}
		return client, nil
	}
}

func writeICS(logger *slog.Logger, path string, results []*finder.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create ics file: %w", err)
	}
	defer f.Close()

	n, err := export.WriteICS(f, results, time.Now())
	if err != nil {
		return err
	}
	logger.Info("Wrote visible passes.", "file", path, "count", n)
	return f.Close()
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
