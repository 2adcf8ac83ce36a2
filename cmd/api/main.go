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

	"github.com/redis/go-redis/v9"

	_ "github.com/PabloPavan/snipshare_api/docs"
	"github.com/PabloPavan/snipshare_api/internal"
	"github.com/PabloPavan/snipshare_api/internal/comments"
	"github.com/PabloPavan/snipshare_api/internal/config"
	"github.com/PabloPavan/snipshare_api/internal/db"
	"github.com/PabloPavan/snipshare_api/internal/httpapi"
	"github.com/PabloPavan/snipshare_api/internal/snippets"
	"github.com/PabloPavan/snipshare_api/internal/taglock"
	"github.com/PabloPavan/snipshare_api/internal/tags"
	"github.com/PabloPavan/snipshare_api/internal/telemetry"
)

type stores struct {
	snippets snippets.Store
	tags     tags.Store
	comments comments.Store
	pinger   httpapi.Pinger
	close    func()
}

func main() {
	cfg, err := config.Load(internal.Env("CONFIG_PATH", ""))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry {
		shutdown, err := telemetry.Init(ctx, cfg.ServiceName)
		if err != nil {
			log.Fatalf("telemetry error: %v", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				log.Printf("telemetry shutdown error: %v", err)
			}
		}()
	}
	db.InitTelemetry(cfg.ServiceName)

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer st.close()

	locker, closeLocker, err := newTagLocker(ctx, cfg)
	if err != nil {
		log.Fatalf("tag lock error: %v", err)
	}
	defer closeLocker()

	snippetsSvc := &snippets.Service{Store: st.snippets, Locker: locker}

	if cfg.Telemetry {
		err := telemetry.InitAppMetrics(cfg.ServiceName, func(ctx context.Context) (int64, int64, error) {
			stats, err := snippetsSvc.Stats(ctx)
			return stats.Snippets, stats.Tags, err
		})
		if err != nil {
			log.Printf("app metrics disabled: %v", err)
		}
	}

	app := &httpapi.App{
		ServiceName: cfg.ServiceName,
		StaticDir:   cfg.StaticDir,
		Health:      &httpapi.HealthHandler{DB: st.pinger},
		Config:      &httpapi.ConfigHandler{BaseURL: cfg.BaseURL},
		Snippets: &httpapi.SnippetsHandler{
			Service:        snippetsSvc,
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
		Tags:     &httpapi.TagsHandler{Service: &tags.Service{Store: st.tags}},
		Comments: &httpapi.CommentsHandler{Service: &comments.Service{Store: st.comments}},
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("api listening on :%s (store=%s, taglock=%s)", cfg.Port, cfg.DBDriver, cfg.TagLock)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		s, err := db.OpenSQLite(ctx, cfg.SQLitePath, cfg.QueryTimeout)
		if err != nil {
			return nil, err
		}
		return &stores{
			snippets: snippets.NewSQLiteRepository(s),
			tags:     tags.NewSQLiteRepository(s),
			comments: comments.NewSQLiteRepository(s),
			pinger:   s,
			close:    func() { _ = s.Close() },
		}, nil
	default:
		d, err := db.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		if err := d.Migrate(ctx); err != nil {
			d.Close()
			return nil, err
		}
		base := db.NewBase(d.Pool, cfg.QueryTimeout)
		return &stores{
			snippets: snippets.NewRepository(base),
			tags:     tags.NewRepository(base),
			comments: comments.NewRepository(base),
			pinger:   base,
			close:    d.Close,
		}, nil
	}
}

func newTagLocker(ctx context.Context, cfg config.Config) (snippets.TagLocker, func(), error) {
	switch cfg.TagLock {
	case config.TagLockMemory:
		return taglock.NewMemory(), func() {}, nil
	case config.TagLockRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return taglock.NewRedis(client, "snipshare:taglock:", cfg.TagLockTTL), func() { _ = client.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
