package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/flashstack/internal/bot"
	"github.com/example/flashstack/internal/scheduler"
	"github.com/example/flashstack/internal/server"
	"github.com/example/flashstack/internal/sweep"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the hourly streak sweep and the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return serve(a)
	},
}

func serve(a *app) error {
	// Создаем контекст с отменой по сигналу
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var notifier sweep.Notifier
	if a.cfg.TelegramBotToken != "" {
		b, err := bot.New(a.cfg.TelegramBotToken, a.repos, a.cfg.MasteryThreshold, a.log.With("component", "bot"))
		if err != nil {
			a.log.Warn("telegram disabled", "error", err)
		} else {
			notifier = b.Notifier()
			go func() {
				if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					a.log.Error("bot stopped", "error", err)
				}
			}()
		}
	}

	runner := a.runner(notifier)
	if a.cfg.SweepEnabled {
		sched := scheduler.New(runner, a.log.With("component", "scheduler"))
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
		a.log.Info("next sweep scheduled", "at", sched.NextRun())

		// Догоняем пропущенный запуск, если сервис был остановлен в начале часа
		if a.cfg.SweepOnStart {
			go func() {
				sum := sched.RunManualCheck(ctx)
				a.log.Info("startup sweep finished", "success", sum.Success, "errors", len(sum.Errors))
			}()
		}
	}

	router := server.NewRouter(server.RouterConfig{
		Log:              a.log,
		CronSecret:       a.cfg.CronSecret,
		Sweeper:          runner,
		Reviews:          a.reviewService(),
		Tests:            a.testModule(),
		Stats:            a.repos.Stats,
		MasteryThreshold: a.cfg.MasteryThreshold,
	})
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", "addr", a.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Даем время на graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("error during shutdown", "error", err)
		return err
	}
	a.log.Info("server stopped")
	return nil
}
