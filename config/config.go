// Package config reads the runtime settings for both database engines and
// the translator service from the environment. cmd/dwhetl loads a local
// .env file first, so a checked-out workspace needs no exported variables.
package config

import (
	"fmt"
	"os"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string

	// WarehouseName is the data warehouse staging database, RegistryName
	// the original clinical registry; both engines share one server.
	WarehouseName string
	RegistryName  string

	TranslatorKey      string
	TranslatorEndpoint string
	TranslatorLocation string

	LogDir       string
	SourceSystem string
	UploadID     int
}

func Load() (*Config, error) {
	cfg := &Config{
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		WarehouseName:      getEnv("DWH_NAME", "reumav_dwh_staging"),
		RegistryName:       getEnv("REGISTRY_NAME", "testim"),
		TranslatorKey:      os.Getenv("TRANSLATOR_KEY"),
		TranslatorEndpoint: getEnv("TRANSLATOR_ENDPOINT", "https://api.cognitive.microsofttranslator.com"),
		TranslatorLocation: getEnv("TRANSLATOR_LOCATION", "westeurope"),
		LogDir:             getEnv("LOG_DIR", "logs"),
		SourceSystem:       getEnv("SOURCESYSTEM_CD", "reuma_v2"),
		UploadID:           1,
	}
	if cfg.DBPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is not set")
	}
	return cfg, nil
}

// WarehouseDSN returns the connection string for the data warehouse engine.
func (c *Config) WarehouseDSN() string {
	return c.dsn(c.WarehouseName)
}

// RegistryDSN returns the connection string for the original registry engine.
func (c *Config) RegistryDSN() string {
	return c.dsn(c.RegistryName)
}

func (c *Config) dsn(database string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, database)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
