package config

import "github.com/caarlos0/env/v6"

type Config struct {
	Server struct {
		// Port the HTTP API listens on
		Port string `env:"PORT" envDefault:"5250"`

		// SQLite file holding properties and snapshots
		DatabasePath string `env:"DATABASE_PATH" envDefault:"database/inspectra.db"`

		// Origins allowed by CORS
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of inspections accepted in one batch request
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of queued batches before pushes are rejected
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"32"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	Scoring struct {
		// Optional JSON file replacing the built-in scoring tables
		TablesPath string `env:"SCORING_TABLES_PATH"`
	}

	Telegram struct {
		BotToken string `env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `env:"TELEGRAM_CHAT_ID"`
		APIURL   string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	}

	Kafka struct {
		// Leave empty to disable event publishing
		Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
		Topic   string   `env:"KAFKA_SNAPSHOT_TOPIC" envDefault:"inspectra.snapshots"`
	}

	Geocoding struct {
		// Geocode properties registered without coordinates
		Enabled     bool   `env:"GEOCODING_ENABLED" envDefault:"false"`
		URL         string `env:"GEOCODING_URL" envDefault:"https://nominatim.openstreetmap.org"`
		CountryCode string `env:"GEOCODING_COUNTRY_CODE" envDefault:"nl"`
		CacheDir    string `env:"GEOCODING_CACHE_DIR" envDefault:"database/geocode_cache"`
	}

	Scheduler struct {
		// How often to look for properties due a new inspection, in minutes
		SweepInterval int `env:"REINSPECTION_SWEEP_MINUTES" envDefault:"60"`

		// Age in days after which the latest snapshot is considered stale
		ReinspectionAfterDays int `env:"REINSPECTION_AFTER_DAYS" envDefault:"365"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
