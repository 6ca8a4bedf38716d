package core

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jobtrail/jobtrail/app/core/srv"
	"github.com/jobtrail/jobtrail/app/store/sqlstore"
	"github.com/jobtrail/jobtrail/pkg/cache"
	"github.com/jobtrail/jobtrail/pkg/docparse"
	"github.com/jobtrail/jobtrail/pkg/types"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores     func() *sqlstore.Provider
	cache      types.Cache
	extractor  docparse.Extractor
	httpClient *http.Client
	httpEngine *gin.Engine

	metrics *Metrics
}

func MustSetupCore(cfg CoreConfig) *Core {
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	core := &Core{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Second * 3},
		metrics:    NewMetrics("jobtrail", "core"),
		httpEngine: gin.New(),
		extractor:  docparse.NewHTTPExtractor(),
	}

	setupSqlStore(core)
	setupCache(core)

	core.srv = srv.SetupSrvs(srv.ApplyAI(cfg.AI))

	return core
}

func setupSqlStore(core *Core) {
	core.stores = sqlstore.MustSetup(core.cfg.Postgres)
	if err := core.stores().Install(); err != nil {
		panic(err)
	}
}

func setupCache(core *Core) {
	if core.cfg.Redis.Addr == "" {
		core.cache = cache.NewLocalCache()
		return
	}
	core.cache = cache.NewRedisCache(redis.NewClient(&redis.Options{
		Addr:     core.cfg.Redis.Addr,
		Password: core.cfg.Redis.Password,
		DB:       core.cfg.Redis.DB,
	}))
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Store() *sqlstore.Provider {
	return s.stores()
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}

func (s *Core) Cache() types.Cache {
	return s.cache
}

func (s *Core) Extractor() docparse.Extractor {
	return s.extractor
}
