package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Sweep      SweepConfig
	Translator TranslatorConfig
}

type ServerConfig struct {
	Address string
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     int
}

// SweepConfig 控制過期辯論的背景清理週期
type SweepConfig struct {
	IntervalSeconds int
}

// TranslatorConfig 外部翻譯服務的連線設定
type TranslatorConfig struct {
	URL            string
	TimeoutSeconds int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./pkg/config")

	// 沒有設定的項目使用預設值
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("sweep.intervalseconds", 60)
	viper.SetDefault("translator.timeoutseconds", 5)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// SweepInterval 回傳清理週期
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweep.IntervalSeconds) * time.Second
}

// TranslatorTimeout 回傳單次翻譯呼叫的逾時上限
func (c *Config) TranslatorTimeout() time.Duration {
	return time.Duration(c.Translator.TimeoutSeconds) * time.Second
}
