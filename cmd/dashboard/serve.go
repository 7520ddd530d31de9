package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/justsurfingit/talent-dashboard/internal/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sync the signed-in role's view and serve it locally",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	if err := a.view.Mount(ctx); err != nil {
		return err
	}
	defer a.view.Unmount()

	router := handlers.NewRouter(
		handlers.NewCollectionHandler(a.view, a.blobs, a.journal),
		handlers.NewJobHandler(a.services.Jobs, a.services.Courses, a.services.Applicants, a.view),
		handlers.NewUserHandler(a.services.Users, a.services.Applicants, a.view),
		handlers.NewChatHandler(a.chat, a.view),
	)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Dashboard for %s (%s) on http://%s", a.view.User.Username, a.view.Role, cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
