package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shaiso/Orbita/internal/mq"
	"github.com/shaiso/Orbita/internal/repo"
)

// Config — конфигурация приложения.
//
// Источники в порядке приоритета: переменные окружения с префиксом
// ORBITA_ (ORBITA_HTTP_ADDR, ORBITA_DB_URL, ...), затем yaml файл
// orbita.yaml, затем значения по умолчанию. Файл необязателен.
type Config struct {
	HTTP struct {
		// Addr — адрес HTTP сервера (host:port).
		Addr string `mapstructure:"addr"`

		// ShutdownTimeout — сколько ждать завершения запросов при остановке.
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	DB struct {
		// URL — строка подключения к PostgreSQL.
		URL string `mapstructure:"url"`
	} `mapstructure:"db"`

	MQ struct {
		// URL — строка подключения к RabbitMQ.
		URL string `mapstructure:"url"`

		// Disabled — работать без RabbitMQ (события только через API).
		Disabled bool `mapstructure:"disabled"`
	} `mapstructure:"mq"`

	Services struct {
		// CatalogURL — базовый URL каталога сцен.
		CatalogURL string `mapstructure:"catalog_url"`

		// ProcessingURL — базовый URL сервиса обработки снимков.
		ProcessingURL string `mapstructure:"processing_url"`

		// StorageURL — базовый URL хранилища результатов.
		StorageURL string `mapstructure:"storage_url"`
	} `mapstructure:"services"`

	Scheduler struct {
		// TickInterval — период опроса SCHEDULED триггеров.
		TickInterval time.Duration `mapstructure:"tick_interval"`

		// Disabled — не запускать планировщик в этом инстансе.
		Disabled bool `mapstructure:"disabled"`
	} `mapstructure:"scheduler"`

	Log struct {
		// Level — уровень логирования: debug, info, warn, error.
		Level string `mapstructure:"level"`

		// Format — формат: text или json.
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// Load читает конфигурацию из файла и окружения.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("orbita")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("ORBITA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Файл необязателен, всё остальное — ошибка
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults задаёт значения по умолчанию для локальной разработки.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("db.url", repo.DefaultDSN())
	v.SetDefault("mq.url", mq.DefaultURL())
	v.SetDefault("mq.disabled", false)
	v.SetDefault("scheduler.tick_interval", 30*time.Second)
	v.SetDefault("scheduler.disabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
