package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort string `envconfig:"APP_PORT" default:"8080"`
	DB       DBConfig
	JWT      JWTConfig
	Scorer   ScorerConfig
	Transfer TransferConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
}

type DBConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"     required:"true"`
	Port     string `envconfig:"POSTGRES_PORT"     required:"true"`
	User     string `envconfig:"POSTGRES_USER"     required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName   string `envconfig:"POSTGRES_DB"       required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE"  default:"disable"`
}
type JWTConfig struct {
	Secret     string        `envconfig:"JWT_SECRET" required:"true"`
	Expiration time.Duration `envconfig:"JWT_EXPIRATION" default:"24h"`
}

type ScorerConfig struct {
	APIURL  string        `envconfig:"GEMINI_API_URL" default:"https://generativelanguage.googleapis.com"`
	APIKey  string        `envconfig:"GEMINI_API_KEY" required:"true"`
	Model   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	Timeout time.Duration `envconfig:"SCORER_TIMEOUT" default:"10s"`
}

type TransferConfig struct {
	// Стартовый демо-баланс в основных единицах.
	InitialBalance float64 `envconfig:"INITIAL_BALANCE" default:"10000.00"`
	// Доля баланса, начиная с которой перевод считается крупным.
	LargeTransactionThreshold float64 `envconfig:"LARGE_TRANSACTION_THRESHOLD" default:"0.3"`
	// Оценка, выше которой перевод замораживается.
	FraudScoreThreshold float64 `envconfig:"FRAUD_SCORE_THRESHOLD" default:"0.7"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"review-alerts"`
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"true"`
}

type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD" default:""`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"REDIS_SCORE_TTL" default:"1h"`
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"true"`
}

func NewConfig() (*Config, error) {
	envFile := "config.env"

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("warning: не удалось загрузить файл %s, используются только системные переменные окружения: %v", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return &cfg, nil
}

func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}
func (d *DBConfig) MigrationURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}
