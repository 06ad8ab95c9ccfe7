package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

const (
	DefaultPageSize     = 10
	DefaultCacheTTLSecs = 20
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
}

type ConfigSchema struct {
	Databases struct {
		Master   DBConfig   `yaml:"master"`
		Replicas []DBConfig `yaml:"replicas"`
	} `yaml:"db"`
	Backend struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"backend"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`
	Feed struct {
		PageSize     int `yaml:"page_size"`
		CacheTTLSecs int `yaml:"cache_ttl"`
	} `yaml:"feed"`
	Logs struct {
		Level     string `yaml:"level"`
		SentrySDK string `yaml:"sentry_sdk"`
	} `yaml:"logs"`
}

var AppConfig *ConfigSchema

func LoadConfig(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	conf := &ConfigSchema{}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return err
	}

	if conf.Feed.PageSize <= 0 {
		conf.Feed.PageSize = DefaultPageSize
	}
	if conf.Feed.CacheTTLSecs <= 0 {
		conf.Feed.CacheTTLSecs = DefaultCacheTTLSecs
	}

	AppConfig = conf
	return nil
}

// PageSize - размер страницы ленты, общий для всех контекстов
func PageSize() int {
	if AppConfig == nil || AppConfig.Feed.PageSize <= 0 {
		return DefaultPageSize
	}
	return AppConfig.Feed.PageSize
}
