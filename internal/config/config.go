package config

import "github.com/spf13/viper"

// Version is the gateway's build version, reported by GET /health.
const Version = "0.1.0"

// Config holds all runtime configuration for the gateway.
type Config struct {
	SessionTTLMin      int
	SessionMaxMessages int
	RateLimitPerMin    int
	MaxFCRounds        int
	TurnDeadlineSec    int

	BackendURL        string
	BackendTimeoutSec int

	LLMModelMain   string
	LLMModelDetect string

	TTSAPIKey  string
	TTSVoiceID string

	RedisAddr string
	RedisDB   int

	ListenAddr string
	StateDir   string

	LogLevel string
	AppEnv   string
}

// Load reads configuration from viper, which merges flag values, env vars,
// and defaults (set up by the cobra command in cmd/gateway).
func Load() Config {
	return Config{
		SessionTTLMin:      viper.GetInt("session_ttl_min"),
		SessionMaxMessages: viper.GetInt("session_max_messages"),
		RateLimitPerMin:    viper.GetInt("rate_limit_per_min"),
		MaxFCRounds:        viper.GetInt("max_fc_rounds"),
		TurnDeadlineSec:    viper.GetInt("turn_deadline_sec"),

		BackendURL:        viper.GetString("backend_url"),
		BackendTimeoutSec: viper.GetInt("backend_timeout_sec"),

		LLMModelMain:   viper.GetString("llm_model_main"),
		LLMModelDetect: viper.GetString("llm_model_detect"),

		TTSAPIKey:  viper.GetString("tts_api_key"),
		TTSVoiceID: viper.GetString("tts_voice_id"),

		RedisAddr: viper.GetString("redis_addr"),
		RedisDB:   viper.GetInt("redis_db"),

		ListenAddr: viper.GetString("listen_addr"),
		StateDir:   viper.GetString("state_dir"),

		LogLevel: viper.GetString("log_level"),
		AppEnv:   viper.GetString("app_env"),
	}
}
