package core

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jobtrail/jobtrail/app/core/srv"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}

	return *conf
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	return c
}

type CoreConfig struct {
	Addr     string      `toml:"addr"`
	Log      Log         `toml:"log"`
	Postgres PGConfig    `toml:"postgres"`
	Redis    RedisConfig `toml:"redis"`

	AI   srv.AIConfig `toml:"ai"`
	Chat ChatConfig   `toml:"chat"`
}

// ChatConfig tunes the streaming pipeline.
type ChatConfig struct {
	// ContextTokenBudget caps the prompt window handed to the model,
	// measured with the cl100k_base encoding. 0 means the default of 4096.
	ContextTokenBudget int `toml:"context_token_budget"`
	// StreamTimeout bounds one full generation in seconds. 0 means no bound
	// beyond the connection lifetime.
	StreamTimeout int `toml:"stream_timeout"`
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("JOBTRAIL_API_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
	c.AI.Token = os.Getenv("JOBTRAIL_AI_TOKEN")
	c.AI.Endpoint = os.Getenv("JOBTRAIL_AI_ENDPOINT")
	c.AI.ChatModel = os.Getenv("JOBTRAIL_AI_CHAT_MODEL")
	if budget := os.Getenv("JOBTRAIL_CHAT_CONTEXT_TOKEN_BUDGET"); budget != "" {
		if v, err := strconv.Atoi(budget); err == nil {
			c.Chat.ContextTokenBudget = v
		}
	}
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("JOBTRAIL_API_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("JOBTRAIL_REDIS_ADDR")
	r.Password = os.Getenv("JOBTRAIL_REDIS_PASSWORD")
	if dbStr := os.Getenv("JOBTRAIL_REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("JOBTRAIL_API_LOG_LEVEL")
	l.Path = os.Getenv("JOBTRAIL_API_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
