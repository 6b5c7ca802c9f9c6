package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/tollgate/adapters/credentials"
	"github.com/layer-3/tollgate/adapters/events"
	"github.com/layer-3/tollgate/adapters/store"
	"github.com/layer-3/tollgate/adapters/tokenizer"
	"github.com/layer-3/tollgate/internal/config"
	"github.com/layer-3/tollgate/internal/logger"
	"github.com/layer-3/tollgate/ports"
	"github.com/layer-3/tollgate/service"
	httptransport "github.com/layer-3/tollgate/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

type ServeCmd struct{}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Dev)
	ctx = log.WithContext(ctx)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(globals.Config)
	if err != nil {
		return err
	}

	tk, err := tokenizer.NewJWTTokenizer(cfg.Tokenizer())
	if err != nil {
		return fmt.Errorf("failed to create tokenizer: %w", err)
	}

	directory, err := credentials.LoadDirectory(cfg.UsersFile)
	if err != nil {
		return fmt.Errorf("failed to load user directory: %w", err)
	}

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	sessions, err := c.sessionStore(ctx, cfg, redisClient)
	if err != nil {
		return err
	}

	eventPub := ports.EventPublisher(events.NopPublisher{})
	if cfg.EventsEnabled {
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			logger.NewWatermillAdapter(log),
		)
		if err != nil {
			return fmt.Errorf("failed to create redis publisher: %w", err)
		}
		defer publisher.Close()
		eventPub = events.NewWatermillPublisher(publisher, cfg.EventsTopic)
	}

	authService := service.NewAuthService(tk, sessions, directory, eventPub,
		service.WithStoreTimeout(cfg.StoreTimeout))

	if !globals.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httptransport.SetupRouter(authService, cfg.OpenPaths, log)
	srv := configureHTTPServer(cfg.Listen, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("listen", cfg.Listen).
			Str("store", cfg.SessionStore).
			Dur("token_ttl", cfg.JWTTTL).
			Dur("idle_ttl", cfg.SessionIdleTTL).
			Str("version", globals.Version).
			Msg("starting tollgate")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (c *ServeCmd) sessionStore(ctx context.Context, cfg *config.Config, client *redis.Client) (ports.SessionStore, error) {
	var opts []store.Option
	opts = append(opts, store.WithPrefix(cfg.SessionKeyPrefix))
	if !cfg.SessionAtomicTouch {
		opts = append(opts, store.WithCheckThenRefresh())
	}

	if cfg.SessionStore == config.StoreMemory {
		zerolog.Ctx(ctx).Warn().Msg("using in-memory session store, sessions are not shared between instances")
		mem := store.NewMemoryStore(cfg.SessionIdleTTL, opts...)
		go sweep(ctx, mem)
		return mem, nil
	}

	rs := store.NewRedisStore(client, cfg.SessionIdleTTL, opts...)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("session store not reachable: %w", err)
	}
	return rs, nil
}

// sweep drops expired in-memory sessions until ctx is done
func sweep(ctx context.Context, mem *store.MemoryStore) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mem.Sweep(); n > 0 {
				zerolog.Ctx(ctx).Debug().Int("removed", n).Int("remaining", mem.Len()).Msg("swept expired sessions")
			}
		}
	}
}
