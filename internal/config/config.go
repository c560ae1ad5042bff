package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "./jsonlgen.yaml"
	envPrefix         = "JSONLGEN_"
)

type Config struct {
	SavePath   string `yaml:"save_path"`
	FileCount  int    `yaml:"file_count"`
	FileName   string `yaml:"file_name"`
	Prefix     string `yaml:"prefix"`
	DataSchema string `yaml:"data_schema"`
	DataLines  int    `yaml:"data_lines"`
	ClearPath  bool   `yaml:"clear_path"`
	Workers    int    `yaml:"workers"`
	LogLevel   string `yaml:"log_level"`
	RunsDB     string `yaml:"runs_db"`
	BindAddr   string `yaml:"bind_addr"`
}

func Defaults() *Config {
	return &Config{
		SavePath:   "results",
		FileCount:  10,
		FileName:   "output",
		Prefix:     "count",
		DataSchema: "{}",
		DataLines:  1,
		ClearPath:  false,
		Workers:    1,
		LogLevel:   "info",
		RunsDB:     "./jsonlgen-runs.sqlite",
		BindAddr:   ":8080",
	}
}

// Load resolves configuration from built-in defaults, then the optional YAML
// file named by JSONLGEN_CONFIG, then the environment. A .env file in the
// working directory fills variables that are not already set.
func Load() (*Config, error) {
	loadDotEnv(".env")

	cfg := Defaults()
	path := getEnv("JSONLGEN_CONFIG", DefaultConfigPath)
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}

	var errs []string
	cfg.SavePath = getEnv(envPrefix+"SAVE_PATH", cfg.SavePath)
	cfg.FileName = getEnv(envPrefix+"FILE_NAME", cfg.FileName)
	cfg.Prefix = getEnv(envPrefix+"PREFIX", cfg.Prefix)
	cfg.DataSchema = getEnv(envPrefix+"DATA_SCHEMA", cfg.DataSchema)
	cfg.LogLevel = getEnv(envPrefix+"LOG_LEVEL", cfg.LogLevel)
	cfg.RunsDB = getEnv(envPrefix+"RUNS_DB", cfg.RunsDB)
	cfg.BindAddr = getEnv(envPrefix+"BIND_ADDR", cfg.BindAddr)
	cfg.FileCount = getEnvInt(envPrefix+"FILE_COUNT", cfg.FileCount, &errs)
	cfg.DataLines = getEnvInt(envPrefix+"DATA_LINES", cfg.DataLines, &errs)
	cfg.Workers = getEnvInt(envPrefix+"WORKERS", cfg.Workers, &errs)
	cfg.ClearPath = getEnvBool(envPrefix+"CLEAR_PATH", cfg.ClearPath, &errs)
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]string) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool, errs *[]string) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be a boolean, got %q", key, value))
		return defaultValue
	}
	return b
}

// loadDotEnv sets KEY=VALUE pairs from path without overriding variables
// already present in the environment.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
