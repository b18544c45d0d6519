package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads configuration from the JSON config file and sets default
// values. configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./hydrosimlogs")

	viper.SetDefault("sim.stepMs", 10)
	viper.SetDefault("sim.namespace", "")
	viper.SetDefault("sim.worldName", "basin")

	viper.SetDefault("buoyancy.fluidDensity", 1000.0)
	viper.SetDefault("buoyancy.regionWKT", "")
	viper.SetDefault("buoyancy.surfaceLevel", 0.0)

	viper.SetDefault("velocity.topic", "")
	viper.SetDefault("velocity.linkNames", []string{"thruster"})

	viper.SetDefault("recorder.type", "sqlite")
	viper.SetDefault("recorder.sqlitePath", "hydrosim.db")
	viper.SetDefault("recorder.dsn",
		"host=localhost port=5432 user=postgres password=postgres dbname=hydrosim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "hydrosim-metrics")

	viper.SetDefault("bridge.enabled", true)
	viper.SetDefault("bridge.listenAddr", "localhost:8701")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("hydrosim.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetStringSlice returns a string slice config value.
func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}
