package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort       string        `mapstructure:"HTTPPort"`
		Timeout        time.Duration `mapstructure:"HTTPTimeout"`
		StaticDir      string        `mapstructure:"staticDir"`
		IndexFile      string        `mapstructure:"indexFile"`
		AllowedOrigins []string      `mapstructure:"allowedOrigins"`
		RateLimit      struct {
			Requests int           `mapstructure:"requests"`
			Window   time.Duration `mapstructure:"window"`
		} `mapstructure:"rateLimit"`
	} `mapstructure:"server"`
	EarthEngine struct {
		BaseURL         string        `mapstructure:"baseURL"`
		Project         string        `mapstructure:"project"`
		CredentialsFile string        `mapstructure:"credentialsFile"`
		CountiesAsset   string        `mapstructure:"countiesAsset"`
		Timeout         time.Duration `mapstructure:"timeout"`
		TrendWorkers    int           `mapstructure:"trendWorkers"`
		Breaker         struct {
			MinRequests uint32        `mapstructure:"minRequests"`
			FailureRate float64       `mapstructure:"failureRate"`
			Interval    time.Duration `mapstructure:"interval"`
			Timeout     time.Duration `mapstructure:"timeout"`
		} `mapstructure:"breaker"`
	} `mapstructure:"earthEngine"`
	Cache struct {
		CountiesTTL time.Duration `mapstructure:"countiesTTL"`
		AnalysisTTL time.Duration `mapstructure:"analysisTTL"`
		Cleanup     time.Duration `mapstructure:"cleanup"`
	} `mapstructure:"cache"`
	Observability struct {
		ServiceName  string `mapstructure:"serviceName"`
		MetricsPort  string `mapstructure:"metricsPort"`
		OTLPEndpoint string `mapstructure:"otlpEndpoint"`
	} `mapstructure:"observability"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// NDVI_EARTHENGINE_PROJECT overrides earthEngine.project, and so on.
	v.SetEnvPrefix("NDVI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	// env values from the dotenv file are seen by AutomaticEnv during Unmarshal
	if path := v.GetString("dotenv"); path != "" {
		if err = godotenv.Load(path); err != nil {
			fmt.Printf("Warning: %s file not found or error loading: %s\n", path, err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if c.Server.HTTPPort == "" {
		return fmt.Errorf("config: server.HTTPPort is required")
	}
	if c.EarthEngine.Project == "" {
		return fmt.Errorf("config: earthEngine.project is required")
	}
	if c.EarthEngine.CountiesAsset == "" {
		return fmt.Errorf("config: earthEngine.countiesAsset is required")
	}
	if c.EarthEngine.TrendWorkers < 0 {
		return fmt.Errorf("config: earthEngine.trendWorkers must not be negative")
	}
	return nil
}
