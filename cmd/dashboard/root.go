package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/justsurfingit/talent-dashboard/internal/assets"
	"github.com/justsurfingit/talent-dashboard/internal/auth"
	"github.com/justsurfingit/talent-dashboard/internal/client"
	"github.com/justsurfingit/talent-dashboard/internal/config"
	"github.com/justsurfingit/talent-dashboard/internal/database"
	"github.com/justsurfingit/talent-dashboard/internal/services"
	"github.com/justsurfingit/talent-dashboard/internal/views"
)

var (
	cfg           *config.Config
	store         *auth.Store
	authenticator *auth.Authenticator

	apiURL string
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Job and course marketplace dashboard",
	Long: "Keeps the role-specific job, course, applicant and user lists of the\n" +
		"marketplace backend in sync and serves them to the local front-end.",
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "backend base URL (overrides DASHBOARD_API_URL)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Setup()
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}

	store = auth.NewStore(cfg.SessionFile)
	authenticator = auth.NewAuthenticator(cfg.APIURL, store, &http.Client{Timeout: cfg.RequestTimeout}, log.Default())
	return nil
}

// app is everything a signed-in command needs.
type app struct {
	view     *views.View
	services views.Services
	blobs    *assets.Registry
	journal  *services.JournalService
	chat     *services.ChatService
}

// setup restores the session and builds the view for the signed-in role.
func setup(ctx context.Context) (*app, error) {
	if err := store.Load(); err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			return nil, errors.New("not signed in, run 'dashboard login' first")
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	user, _ := store.User()

	c := client.New(cfg.APIURL, store,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithRefresher(authenticator),
	)
	svc := views.Services{
		Jobs:       services.NewJobService(c),
		Courses:    services.NewCourseService(c),
		Applicants: services.NewApplicantService(c),
		Users:      services.NewUserService(c),
	}

	journal := services.NewJournalService(nil)
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Printf("⚠️  Sync journal disabled: %v", err)
		} else {
			journal = services.NewJournalService(db)
		}
	}

	chat, err := services.NewChatService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Printf("⚠️  Chat widget disabled: %v", err)
		chat = services.NewChatServiceWithModel(nil)
	}

	blobs := assets.NewRegistry("/api/v1/blobs/")
	view, err := views.ForRole(user, svc, views.Options{
		Deps: views.Deps{
			Minter:         blobs,
			PlaceholderURL: cfg.PlaceholderURL,
			Concurrency:    cfg.AssetConcurrency,
			Journal:        journal,
			Logger:         log.Default(),
		},
		Interval: cfg.Interval,
	})
	if err != nil {
		return nil, err
	}

	return &app{view: view, services: svc, blobs: blobs, journal: journal, chat: chat}, nil
}
