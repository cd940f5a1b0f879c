package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"taskplanner/internal/api"
	"taskplanner/internal/config"
	"taskplanner/internal/notify"
	"taskplanner/internal/repository"
	"taskplanner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	occRepo := repository.NewOccurrenceRepository(db)

	if _, err := userRepo.EnsureToken(ctx, "owner", cfg.APIToken, cfg.TelegramChatID); err != nil {
		log.Fatal().Err(err).Msg("ensure api user")
	}

	var notifier notify.Notifier
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram notifier")
		}
		notifier = tg
	} else {
		notifier = notify.NewLogNotifier(log.With().Str("component", "notify").Logger())
	}

	materializer := service.NewMaterializer(occRepo, log.With().Str("component", "materializer").Logger())
	taskSvc := service.NewTaskService(taskRepo, occRepo, materializer, cfg.HorizonDays,
		log.With().Str("component", "tasks").Logger())
	reminderSvc := service.NewReminderService(occRepo, userRepo, notifier,
		log.With().Str("component", "reminders").Logger())

	scheduler := service.NewSchedulerService(time.Local, log.With().Str("component", "scheduler").Logger())
	if _, err := scheduler.ScheduleDaily("horizon-refresh", cfg.RefreshTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := taskSvc.RefreshHorizons(jobCtx, time.Now()); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("horizon refresh")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule horizon refresh")
	}
	if _, err := scheduler.ScheduleInterval("reminder-poll", cfg.ReminderPoll, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := reminderSvc.DispatchDue(jobCtx, time.Now()); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("reminder dispatch")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule reminder poll")
	}
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewTaskHandler(taskSvc, log.With().Str("component", "api").Logger())
	router := api.NewRouter(handler, userRepo, log.With().Str("component", "http").Logger())

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("task planner listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("shutdown complete")
}
