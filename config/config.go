package config

import (
	"errors"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// GameConfig 游戏规则配置
type GameConfig struct {
	RejectLimit     int    `mapstructure:"reject_limit"`     // 连续流局多少次后强制结束
	StalemateWinner string `mapstructure:"stalemate_winner"` // 流局时判给哪个阵营
}

// AIConfig AI决策配置
type AIConfig struct {
	UseLLM bool `mapstructure:"use_llm"` // 为true时所有玩家由LLM决策，否则使用规则策略
}

// LLMConfig 远程模型配置
type LLMConfig struct {
	Provider       string `mapstructure:"provider"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Config 全量配置
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Game   GameConfig   `mapstructure:"game"`
	AI     AIConfig     `mapstructure:"ai"`
	LLM    LLMConfig    `mapstructure:"llm"`
}

// Load 读取配置：默认值 < 配置文件 < 环境变量（AVALON_前缀）。
// 配置文件缺失不算错误，直接按默认值运行。
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("game.reject_limit", 5)
	v.SetDefault("game.stalemate_winner", "evil")
	v.SetDefault("ai.use_llm", false)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout_seconds", 30)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("AVALON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Println("[配置] 未找到配置文件，使用默认配置")
	} else {
		log.Printf("[配置] 已加载配置文件 %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
