package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recurring_message_bot/internal/app"
	"recurring_message_bot/internal/domain/chat"
	"recurring_message_bot/internal/domain/schedule"
	"recurring_message_bot/internal/infra/config"
	idb "recurring_message_bot/internal/infra/database"
	"recurring_message_bot/internal/infra/events"
	"recurring_message_bot/internal/infra/lock"
	"recurring_message_bot/internal/infra/logger"
	"recurring_message_bot/internal/infra/scheduler"
	"recurring_message_bot/internal/infra/status"
	"recurring_message_bot/internal/infra/telegram"

	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v3"
)

const tickLockTTL = 10 * time.Minute

func main() {
	fmt.Println("Recurring Message Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s, Sink: %s, TimeZone: %s",
		cfg.LogLevel, cfg.Environment, cfg.MessageSink, cfg.TimeZone)

	// All calendar evaluation happens in this one configured zone.
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Fatalf("FATAL: Invalid TIME_ZONE %q: %v", cfg.TimeZone, err)
	}
	clock := schedule.NewZoneClock(loc)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	ruleRepo := idb.NewPostgresRuleRepository(db)
	log.Info("Rule repository initialized.")

	// Initialize Message Sink
	var sink chat.Sink
	switch cfg.MessageSink {
	case config.SinkTelegram:
		pref := telebot.Settings{Token: cfg.TelegramToken}
		bot, err := telebot.NewBot(pref)
		if err != nil {
			log.Fatalf("FATAL: Could not create Telegram bot: %v", err)
		}
		sink = telegram.NewTelebotSink(bot)
		log.Info("Telegram message sink initialized.")
	case config.SinkAMQP:
		amqpSink, err := events.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("FATAL: Could not connect to AMQP broker: %v", err)
		}
		defer amqpSink.Close()
		sink = amqpSink
		log.Infof("AMQP message sink initialized (exchange %q).", cfg.AMQPExchange)
	}

	// Initialize services
	counters := &status.Counters{}
	dispatcher := status.CountTicks(app.NewDispatchService(ruleRepo, sink, clock, log), counters)
	ruleService := app.NewRuleService(ruleRepo, clock)
	log.Info("Dispatch and rule services initialized.")

	// Optional cross-process tick lock
	var tickLock scheduler.TickLock
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("FATAL: Invalid REDIS_URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		tickLock = lock.NewRedisTickLock(redisClient, tickLockTTL, log)
		log.Info("Redis tick lock enabled.")
	} else {
		log.Info("No REDIS_URL configured; ticks run without cross-process locking.")
	}

	// The host process owns the tick cadence; nothing self-registers timers.
	tickScheduler := scheduler.NewTickScheduler(dispatcher, clock, tickLock, log, loc, cfg.CronSpecTick)
	tickScheduler.Start()

	statusServer := status.NewServer(cfg.StatusPort, db, dispatcher, ruleService, clock, counters, log)
	statusServer.Start()

	log.Info("Application setup complete. Scheduler and status server are running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down application...")
	tickScheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := statusServer.Stop(shutdownCtx); err != nil {
		log.Errorf("Error stopping status server: %v", err)
	}
	log.Info("Application shut down gracefully.")
}
