package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	World      WorldConfig      `yaml:"world"`
	Multiblock MultiblockConfig `yaml:"multiblock"`
	Storage    StorageConfig    `yaml:"storage"`
	EventBus   EventBusConfig   `yaml:"eventbus"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	RESTPort    int    `yaml:"rest_port"`
	MetricsPort int    `yaml:"metrics_port"`
	ServiceName string `yaml:"service_name"`
	Tracing     bool   `yaml:"tracing"`
	// Адрес OTLP/HTTP коллектора; пусто: OTEL_EXPORTER_OTLP_ENDPOINT или localhost:4318
	TracingEndpoint  string  `yaml:"tracing_endpoint"`
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
}

type WorldConfig struct {
	Seed         int64  `yaml:"seed"`
	DefaultWorld string `yaml:"default_world"`
	GenerateArea int    `yaml:"generate_area_chunks"`
}

// MultiblockConfig настройки отслеживания структур
type MultiblockConfig struct {
	MergeRoundCap     int `yaml:"merge_round_cap"`
	SweepEverySeconds int `yaml:"sweep_every_seconds"`
}

// StorageConfig выбирает бэкенд хранения структур
type StorageConfig struct {
	Backend         string      `yaml:"backend"` // memory | badger | redis | maria | mongo
	Path            string      `yaml:"path"`
	SnapshotPath    string      `yaml:"snapshot_path"`
	AutosaveSeconds int         `yaml:"autosave_seconds"`
	Redis           RedisConfig `yaml:"redis"`
	Maria           MariaConfig `yaml:"maria"`
	Mongo           MongoConfig `yaml:"mongo"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type MariaConfig struct {
	DSN string `yaml:"dsn"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type LoggingConfig struct {
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
	Dir          string `yaml:"dir"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ServiceName:      "foodcraft-multiblock",
			TraceSampleRatio: 1,
		},
		World: WorldConfig{
			Seed:         1337,
			DefaultWorld: "overworld",
			GenerateArea: 2,
		},
		Multiblock: MultiblockConfig{
			MergeRoundCap:     10,
			SweepEverySeconds: 60,
		},
		Storage: StorageConfig{
			Backend:         "badger",
			Path:            "data",
			SnapshotPath:    "data/structures.snapshot.zst",
			AutosaveSeconds: 300,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "foodcraft:structures:",
			},
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "foodcraft",
				Collection: "structures",
			},
		},
		EventBus: EventBusConfig{
			Stream:    "STRUCTURES",
			Retention: 24,
			Buffer:    1024,
		},
		Logging: LoggingConfig{
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
		},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "FOODCRAFT_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "FOODCRAFT_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV FOODCRAFT_CONFIG; без него
// возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("FOODCRAFT_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize возвращает дефолты для явно обнулённых значений
func (c *Config) normalize() {
	def := Default()
	if c.Multiblock.MergeRoundCap <= 0 {
		c.Multiblock.MergeRoundCap = def.Multiblock.MergeRoundCap
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.World.DefaultWorld == "" {
		c.World.DefaultWorld = def.World.DefaultWorld
	}
	if c.Server.TraceSampleRatio <= 0 || c.Server.TraceSampleRatio > 1 {
		c.Server.TraceSampleRatio = def.Server.TraceSampleRatio
	}
	if c.EventBus.Buffer <= 0 {
		c.EventBus.Buffer = def.EventBus.Buffer
	}
}
