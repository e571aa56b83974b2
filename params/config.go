package params

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Exchange struct {
	// Admin may cancel any order and is the only caller allowed to execute matches.
	Admin string `env:"EXCHANGE_ADMIN"`
	// ContractAddress is the custodian of escrowed registry entries. Its
	// permission on an entry is revoked when the entry is settled or released.
	ContractAddress string `env:"EXCHANGE_CONTRACT_ADDRESS"`
}

type Storage struct {
	DBPath string `env:"DB_PATH"` // empty keeps state in memory
}

type API struct {
	Addr           string   `env:"API_ADDR"`
	AllowedOrigins []string `env:"API_ALLOWED_ORIGINS" envSeparator:","`
}

type Log struct {
	File  string `env:"LOG_FILE"`
	Level string `env:"LOG_LEVEL"`
}

type Events struct {
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC"`
	JournalPath  string   `env:"JOURNAL_PATH"`
}

type Oracle struct {
	// Fixture is a JSON file seeding the in-memory attribute and registry oracles.
	Fixture string `env:"ORACLE_FIXTURE"`
}

type Config struct {
	Exchange Exchange
	Storage  Storage
	API      API
	Log      Log
	Events   Events
	Oracle   Oracle
}

func Default() Config {
	return Config{
		Exchange: Exchange{
			ContractAddress: "exchange-contract",
		},
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Log: Log{
			Level: "info",
		},
		Events: Events{
			KafkaTopic: "exchange-events",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	// The .env file is optional.
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the node cannot run without.
func (c Config) Validate() error {
	var problems []error
	if c.Exchange.Admin == "" {
		problems = append(problems, errors.New("EXCHANGE_ADMIN must be set"))
	}
	if c.Exchange.ContractAddress == "" {
		problems = append(problems, errors.New("EXCHANGE_CONTRACT_ADDRESS must be set"))
	}
	if len(c.Events.KafkaBrokers) > 0 && c.Events.KafkaTopic == "" {
		problems = append(problems, errors.New("KAFKA_TOPIC must be set when KAFKA_BROKERS is"))
	}
	return errors.Join(problems...)
}
