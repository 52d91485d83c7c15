package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment variable names
const (
	envAppEnv            = "APP_ENV"
	envAppServiceName    = "APP_SERVICE_NAME"
	envAppServiceVersion = "APP_SERVICE_VERSION"
	envConfigFile        = "CONFIG_FILE"
	envConfigDir         = "CONFIG_DIR"
)

const defaultConfigDir = "./configs"

// AppConfig represents the core application metadata and configuration paths.
// It is loaded from environment variables and provides service identity
// and configuration file location information.
type AppConfig struct {
	// ConfigFile is the full path to the config file
	ConfigFile string
	// ServiceName is the name of the service
	ServiceName string
	// ServiceVersion is the version of the service
	ServiceVersion string
	// Environment is the deployment environment (e.g., "local", "staging", "pro")
	Environment string
}

// newAppConfig creates a new AppConfig by reading environment variables.
// It loads the .env file if it exists (optional).
func newAppConfig() (AppConfig, error) {
	// .env is optional, silently ignore if missing
	_ = godotenv.Load()

	env := os.Getenv(envAppEnv)
	if env == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppEnv)
	}

	serviceName := os.Getenv(envAppServiceName)
	if serviceName == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppServiceName)
	}

	serviceVersion := os.Getenv(envAppServiceVersion)
	if serviceVersion == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppServiceVersion)
	}

	configFile := os.Getenv(envConfigFile)
	if configFile == "" {
		configDir := os.Getenv(envConfigDir)
		if configDir == "" {
			configDir = defaultConfigDir
		}
		configFile = filepath.Join(configDir, "config."+env+".yaml")
	}

	return AppConfig{
		ConfigFile:     configFile,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    env,
	}, nil
}

func newViper(conf AppConfig) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetConfigFile(conf.ConfigFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file [%s]: %w", conf.ConfigFile, err)
	}

	return v, nil
}
