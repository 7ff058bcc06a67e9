package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leadlab/engage/internal/api"
	"github.com/leadlab/engage/internal/attribution"
	"github.com/leadlab/engage/internal/config"
	"github.com/leadlab/engage/internal/contact"
	"github.com/leadlab/engage/internal/engagement"
	"github.com/leadlab/engage/internal/eventstore"
	"github.com/leadlab/engage/internal/hubspot"
	"github.com/leadlab/engage/internal/notify"
	"github.com/leadlab/engage/internal/notify/resend"
	"github.com/leadlab/engage/internal/notify/sesmail"
	"github.com/leadlab/engage/internal/pkg/logger"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.RedactEnabled())

	ctx := context.Background()

	crm := buildCRM(cfg)
	notifier := buildNotifier(ctx, cfg)

	contactOpts := []contact.Option{}
	if rdb := connectRedis(ctx, cfg); rdb != nil {
		contactOpts = append(contactOpts, contact.WithJarFn(redisJarFn(rdb)))
	}

	layer := engagement.NewDataLayer()
	eventOpts := []api.EventsOption{
		api.WithAllowedReferers(cfg.Events.AllowedReferers),
		api.WithDedupWindow(cfg.Events.DedupWindow()),
	}
	if cfg.Database.Enabled {
		store, err := eventstore.Open(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("event store unavailable, events will not persist", "error", err.Error())
		} else {
			defer store.Close()
			eventOpts = append(eventOpts, api.WithRecorder(store))
			logger.Info("event store connected")
		}
	}

	router := api.SetupRoutes(api.Handlers{
		Contact: contact.NewHandler(crm, notifier, contactOpts...),
		Events:  api.NewEventsHandler(layer, eventOpts...),
	})

	srv := api.NewServer(router)
	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err.Error())
	}
}

func buildCRM(cfg *config.Config) contact.CRM {
	if cfg.Contact.HubSpotAPIKey == "" {
		logger.Warn("HUBSPOT_API_KEY not set, CRM sync disabled")
		return nil
	}
	return hubspot.NewClient(cfg.Contact.HubSpotAPIKey)
}

func buildNotifier(ctx context.Context, cfg *config.Config) contact.Notifier {
	if cfg.Contact.NotifyFrom == "" || cfg.Contact.NotifyTo == "" {
		logger.Warn("notify_from/notify_to not set, email notifications disabled")
		return nil
	}

	var sender notify.Sender
	switch cfg.Contact.NotifyProvider {
	case "ses":
		s, err := sesmail.New(ctx, sesmail.Options{
			Region:    cfg.SES.Region,
			AccessKey: cfg.SES.AccessKey,
			SecretKey: cfg.SES.SecretKey,
		})
		if err != nil {
			logger.Error("SES sender unavailable, email notifications disabled", "error", err.Error())
			return nil
		}
		sender = s
	case "resend":
		if cfg.Contact.ResendAPIKey == "" {
			logger.Warn("RESEND_API_KEY not set, email notifications disabled")
			return nil
		}
		sender = resend.NewClient(cfg.Contact.ResendAPIKey)
	default:
		logger.Error("unknown notify provider", "provider", cfg.Contact.NotifyProvider)
		return nil
	}

	n, err := notify.New(notify.Config{
		From:     cfg.Contact.NotifyFrom,
		To:       cfg.Contact.NotifyTo,
		SiteName: cfg.Contact.SiteName,
		SiteURL:  cfg.Contact.SiteURL,
	}, sender)
	if err != nil {
		logger.Error("notifier init failed", "error", err.Error())
		return nil
	}
	return n
}

func connectRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, falling back to cookie attribution", "error", err.Error())
		return nil
	}
	logger.Info("redis connected", "addr", cfg.Redis.Addr)
	return rdb
}

// redisJarFn keys stored attribution by the visitor_id query parameter,
// so attribution survives cookie clearing. Requests without a visitor ID
// fall back to the cookie jar.
func redisJarFn(rdb *redis.Client) contact.JarFn {
	return func(w http.ResponseWriter, r *http.Request) attribution.Jar {
		if visitorID := r.URL.Query().Get("visitor_id"); visitorID != "" {
			return attribution.NewRedisJar(r.Context(), rdb, visitorID)
		}
		return attribution.NewCookieJar(w, r)
	}
}
