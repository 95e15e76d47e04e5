package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

func New() Config {
	return Config{
		Environment:      optionalEnv("ENVIRONMENT", "production"),
		BasePath:         requireEnv("BASE_PATH"),
		JwtPublicKeyFile: requireEnv("JWT_PUBLIC_KEY_FILE"),
		Postgresql: Postgresql{
			Host:         requireEnv("DATABASE_HOST"),
			Port:         requireEnvAsInt("DATABASE_PORT"),
			Username:     requireEnv("DATABASE_USERNAME"),
			Password:     requireEnv("DATABASE_PASSWORD"),
			DatabaseName: requireEnv("DATABASE_NAME"),
		},
		Atlas: Atlas{
			BaseURL:    optionalEnv("ATLAS_BASE_URL", "https://cloud.mongodb.com/api/atlas/v1.0"),
			PublicKey:  requireEnv("ATLAS_PUBLIC_KEY"),
			PrivateKey: requireEnv("ATLAS_PRIVATE_KEY"),
			OrgID:      requireEnv("ATLAS_ORG_ID"),
		},
		RabbitMq: RabbitMq{
			Host:     optionalEnv("RABBITMQ_HOST", ""),
			Port:     optionalEnvAsInt("RABBITMQ_PORT", 5672),
			Username: optionalEnv("RABBITMQ_USERNAME", "guest"),
			Password: optionalEnv("RABBITMQ_PASSWORD", "guest"),
		},
		CleanupIntervalSeconds:     uint(optionalEnvAsInt("CLEANUP_INTERVAL_SECONDS", 0)),
		StaleCreatingMaxAgeSeconds: uint(optionalEnvAsInt("STALE_CREATING_MAX_AGE_SECONDS", 1800)),
		DefaultAccessListCIDR:      optionalEnv("DEFAULT_ACCESS_LIST_CIDR", "0.0.0.0/0"),
	}
}

type Config struct {
	Environment      string
	BasePath         string
	JwtPublicKeyFile string
	Postgresql       Postgresql
	Atlas            Atlas
	RabbitMq         RabbitMq

	// CleanupIntervalSeconds enables the cleanup scheduler when non-zero.
	CleanupIntervalSeconds uint
	// StaleCreatingMaxAgeSeconds is the age after which a cluster stuck in
	// creating with no confirmed remote resource may be reconciled to error.
	StaleCreatingMaxAgeSeconds uint
	DefaultAccessListCIDR      string
}

type Postgresql struct {
	Host         string
	Port         int
	Username     string
	Password     string
	DatabaseName string
}

type Atlas struct {
	BaseURL    string
	PublicKey  string
	PrivateKey string
	OrgID      string
}

// RabbitMq is optional. Lifecycle notifications are discarded when no host is
// configured.
type RabbitMq struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (r RabbitMq) GetUrl() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", r.Username, r.Password, r.Host, r.Port)
}

func requireEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		log.Fatalf("Can't find environment variable: %s\n", key)
	}
	return value
}

func requireEnvAsInt(key string) int {
	valueStr := requireEnv(key)
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Fatalf("Can't parse value as integer: %s", err.Error())
	}
	return value
}

func optionalEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

func optionalEnvAsInt(key string, fallback int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Fatalf("Can't parse value as integer: %s", err.Error())
	}
	return value
}
