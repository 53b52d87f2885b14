package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/voice-booking-assistant/internal/appointments"
	appconfig "github.com/wolfman30/voice-booking-assistant/internal/config"
	"github.com/wolfman30/voice-booking-assistant/internal/interview"
	"github.com/wolfman30/voice-booking-assistant/internal/matcher"
	"github.com/wolfman30/voice-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/voice-booking-assistant/pkg/logging"
)

// Persistence bundles where appointments are written and where reference
// sets are read from.
type Persistence struct {
	Saver     interview.AppointmentSaver
	Reference matcher.ReferenceSource
	// Pool is nil unless DATABASE_URL is configured.
	Pool *pgxpool.Pool
}

// Close releases the database pool, if any.
func (p *Persistence) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// BuildPersistence connects to Postgres when configured. Without a database,
// appointments stay in memory and reference sets come from
// REFERENCE_DATA_FILE (or are empty, which makes every answer pass through
// unchanged).
func BuildPersistence(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Persistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		repo := appointments.NewPostgresRepository(pool)
		logger.Info("appointments persisted to postgres")
		return &Persistence{Saver: repo, Reference: repo, Pool: pool}, nil
	}

	logger.Warn("DATABASE_URL not set; appointments kept in memory")
	return &Persistence{
		Saver:     appointments.NewInMemoryRepository(),
		Reference: BuildFallbackReferenceSource(cfg, logger),
	}, nil
}

// BuildFallbackReferenceSource returns the file source when one is configured,
// otherwise an empty static snapshot.
func BuildFallbackReferenceSource(cfg *appconfig.Config, logger *logging.Logger) matcher.ReferenceSource {
	if path := strings.TrimSpace(cfg.ReferenceDataFile); path != "" {
		logger.Info("loading reference data from file", "path", path)
		return matcher.FileSource{Path: path}
	}
	logger.Warn("no reference data configured; answers will not be normalized")
	return matcher.StaticSource{}
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore selects the session backend named by SESSION_STORE. The
// returned cleanup stops background work and closes connections.
func BuildSessionStore(ctx context.Context, cfg *appconfig.Config, m *metrics.InterviewMetrics, logger *logging.Logger) (interview.SessionStore, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.SessionStore {
	case "", "memory":
		store := interview.NewMemorySessionStore(cfg.SessionIdleTTL, logger, interview.WithStoreMetrics(m))
		logger.Info("session store ready", "backend", "memory", "idle_ttl", cfg.SessionIdleTTL.String())
		return store, store.Close, nil
	case "redis":
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, nil, fmt.Errorf("bootstrap: redis session store unavailable at %s", cfg.RedisAddr)
		}
		logger.Info("session store ready", "backend", "redis", "addr", cfg.RedisAddr)
		return interview.NewRedisSessionStore(client, cfg.SessionIdleTTL), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unsupported session store %q", cfg.SessionStore)
	}
}

// BuildMatcher creates the matcher and performs the initial load.
func BuildMatcher(ctx context.Context, source matcher.ReferenceSource, cfg *appconfig.Config, logger *logging.Logger) (*matcher.Matcher, error) {
	m := matcher.New(source, cfg.MatchThreshold, logger)
	if err := m.Load(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap: load reference sets: %w", err)
	}
	return m, nil
}
