package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"krishighor/internal/config"
	"krishighor/internal/http/handlers"
	applog "krishighor/internal/log"
	"krishighor/internal/notify"
	"krishighor/internal/payment"
	"krishighor/internal/repos"
)

func notifiers(cfg config.Config, store *repos.Store) []notify.Notifier {
	list := []notify.Notifier{notify.LogNotifier{}}
	if cfg.NotifyOutbox {
		list = append(list, &notify.OutboxNotifier{Outbox: repos.NewOutboxRepo(store), Topic: cfg.KafkaTopic})
	}
	if cfg.SMTPHost != "" && cfg.SMTPUser != "" {
		mail, err := notify.NewMailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		if err != nil {
			log.Printf("[warn] mail notifications disabled: %v", err)
		} else {
			list = append(list, mail)
		}
	}
	return list
}

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := applog.Tee(cfg.LogFile)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
		}
	}

	store, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN, cfg.DBMaxConns)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if cfg.Seed {
		n, err := repos.SeedIfEmpty(context.Background(), store)
		if err != nil {
			log.Fatalf("seed catalog: %v", err)
		}
		if n > 0 {
			log.Printf("[seed] inserted %d crops", n)
		}
	}

	gateway := payment.NewRetrying(&payment.Simulated{}, cfg.PaymentTimeout, cfg.PaymentRetries)
	dispatcher := notify.NewDispatcher(cfg.NotifyWorkers, cfg.NotifyQueue, 30*time.Second, notifiers(cfg, store)...)

	deps := handlers.NewDeps(store, cfg, gateway, dispatcher)
	app := handlers.NewApp(cfg, deps)

	// Warm the recommendation index so the first cart does not pay for training.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := deps.Engine.GetOrBuild(ctx); err != nil {
			applog.Warn(nil, "recommend.warmup", map[string]any{"err": err.Error()})
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("[error] listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("[shutdown] stopping server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("[error] shutdown: %v", err)
	}
	// Drain pending confirmations before the store goes away.
	dispatcher.Close()
	log.Println("[shutdown] done")
}
