package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"jobboard/internal/config"
	"jobboard/internal/domain"
	"jobboard/internal/infra/etcd"
	"jobboard/internal/infra/memory"
	"jobboard/internal/infra/postgres"
	"jobboard/internal/infra/redis"
	"jobboard/internal/saved"
	"jobboard/internal/usecase"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// runtime holds the connections and components selected by the config.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	gateway *usecase.JobGateway
	cache   saved.Cache
	leader  domain.LeaderElectionManager
	locker  domain.Locker

	pool *pgxpool.Pool
	rdb  *goredis.Client
	etcd *clientv3.Client
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// openRuntime connects to every backend the config names and assembles the
// gateway on top of them. The caller must Close the result.
func openRuntime(ctx context.Context, cfg *config.Config, nodeID string, logger *slog.Logger) (rt *runtime, err error) {
	rt = &runtime{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	if cfg.StoreDriver == config.DriverPostgres {
		rt.pool, err = postgres.NewPool(ctx, postgres.PoolOptions{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		logger.Info("connected to postgres")
	}
	if cfg.RedisURL != "" {
		rt.rdb, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("connected to redis")
	}
	if len(cfg.EtcdEndpoints) > 0 {
		rt.etcd, err = etcd.NewClient(ctx, cfg.EtcdEndpoints, cfg.EtcdTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to etcd: %w", err)
		}
		logger.Info("connected to etcd", "endpoints", cfg.EtcdEndpoints)
	}

	var stores usecase.Stores
	if rt.pool != nil {
		stores = usecase.Stores{
			Jobs:         postgres.NewJobRepository(rt.pool, logger),
			Companies:    postgres.NewCompanyRepository(rt.pool),
			Saved:        postgres.NewSavedJobRepository(rt.pool),
			Applications: postgres.NewApplicationRepository(rt.pool),
		}
	} else {
		store := memory.NewStore()
		stores = usecase.Stores{
			Jobs:         store.Jobs(),
			Companies:    store.Companies(),
			Saved:        store.SavedJobs(),
			Applications: store.Applications(),
		}
	}

	var feed domain.ChangeFeed
	switch cfg.ChangeFeed {
	case config.FeedPostgres:
		feed = postgres.NewChangeFeed(rt.pool, logger)
	case config.FeedRedis:
		feed = redis.NewChangeFeed(rt.rdb, logger)
	case config.FeedEtcd:
		feed = etcd.NewChangeFeed(rt.etcd, logger)
	default:
		feed = memory.NewChangeFeed()
	}
	rt.gateway = usecase.NewJobGateway(stores, feed, logger)

	if rt.rdb != nil {
		rt.cache = redis.NewSavedCache(rt.rdb, cfg.SavedCacheTTL)
	} else {
		rt.cache = memory.NewSavedCache()
	}

	if rt.etcd != nil {
		rt.leader = etcd.NewLeaderElectionManager(rt.etcd, nodeID, cfg.LeaderElectionTTL, logger)
		rt.locker = etcd.NewLocker(rt.etcd, cfg.EtcdTimeout)
	} else {
		rt.leader = memory.NewLeaderElection(nodeID)
	}
	return rt, nil
}

// Close releases every connection the runtime opened.
func (rt *runtime) Close() {
	if rt.etcd != nil {
		if err := rt.etcd.Close(); err != nil {
			rt.logger.Warn("failed to close etcd client", "error", err)
		}
	}
	if rt.rdb != nil {
		if err := rt.rdb.Close(); err != nil {
			rt.logger.Warn("failed to close redis client", "error", err)
		}
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
}
