package config

import (
	"os"
	"path/filepath"

	"github.com/caiflower/webserver/global/env"
	"github.com/caiflower/webserver/pkg/logger"
	"github.com/caiflower/webserver/pkg/tools"
	"github.com/caiflower/webserver/web/server"
	"github.com/joho/godotenv"
)

const (
	ConfigFile = "config.yaml"
	EnvFile    = ".env"

	EnvWwwRoot = "WEBSERVER_ROOT"
	EnvAddr    = "WEBSERVER_ADDR"
)

type DefaultConfig struct {
	ServerConfig server.Options `yaml:"server"`
	LoggerConfig logger.Config  `yaml:"logger"`
}

// LoadDefaultConfig reads <ConfigPath>/config.yaml after loading .env from the working
// directory. A missing yaml file leaves every key at its default. WEBSERVER_ROOT and
// WEBSERVER_ADDR override the yaml values.
func LoadDefaultConfig(v *DefaultConfig) (err error) {
	if err = loadEnvFile(EnvFile); err != nil {
		return
	}
	if p := os.Getenv(env.ConfigPathEnv); p != "" {
		env.SetDefaultConfigPath(p)
	}

	filename := filepath.Join(env.ConfigPath, ConfigFile)
	if tools.FileExist(filename) {
		err = tools.LoadConfig(filename, v)
	} else {
		err = tools.SetDefaults(v)
	}
	if err != nil {
		return
	}

	applyEnv(v)
	return
}

func loadEnvFile(name string) error {
	if _, err := os.Stat(name); err == nil {
		return godotenv.Load(name)
	}
	return nil
}

func applyEnv(v *DefaultConfig) {
	if root := os.Getenv(EnvWwwRoot); root != "" {
		v.ServerConfig.WwwRoot = root
	}
	if addr := os.Getenv(EnvAddr); addr != "" {
		v.ServerConfig.Addr = addr
	}
}
