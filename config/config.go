package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type ProviderConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	APIKey  string        `mapstructure:"apiKey"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort    string        `mapstructure:"HTTPPort"`
		MetricsPort string        `mapstructure:"metricsPort"`
		Timeout     time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Cache struct {
		// Backend is "memory" or "redis".
		Backend       string        `mapstructure:"backend"`
		RedisAddr     string        `mapstructure:"redisAddr"`
		RedisPassword string        `mapstructure:"redisPassword"`
		RedisDB       int           `mapstructure:"redisDB"`
		SweepInterval time.Duration `mapstructure:"sweepInterval"`
		TTL           struct {
			Geocode   time.Duration `mapstructure:"geocode"`
			Places    time.Duration `mapstructure:"places"`
			Route     time.Duration `mapstructure:"route"`
			StaticMap time.Duration `mapstructure:"staticMap"`
		} `mapstructure:"ttl"`
	} `mapstructure:"cache"`
	Providers struct {
		Geocode        ProviderConfig `mapstructure:"geocode"`
		Places         ProviderConfig `mapstructure:"places"`
		RoutingPrimary ProviderConfig `mapstructure:"routingPrimary"`
		RoutingLegacy  ProviderConfig `mapstructure:"routingLegacy"`
		StaticMap      ProviderConfig `mapstructure:"staticMap"`
	} `mapstructure:"providers"`
	Analysis struct {
		OverallTimeout time.Duration `mapstructure:"overallTimeout"`
		CityRadiusKm   float64       `mapstructure:"cityRadiusKm"`
		CityLimit      int           `mapstructure:"cityLimit"`
		POIRadiusM     int           `mapstructure:"poiRadiusM"`
		BudgetCeiling  float64       `mapstructure:"budgetCeiling"`
	} `mapstructure:"analysis"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
