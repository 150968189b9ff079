package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string `env:"DATABASE_DSN,required=true"`
	RedisURL            string `env:"REDIS_URL,required=true"`
	RabbitMQURL         string `env:"RABBITMQ_URL"`
	PushProvider        string `env:"PUSH_PROVIDER,default=webpush"`
	VAPIDPublicKey      string `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey     string `env:"VAPID_PRIVATE_KEY"`
	VAPIDSubscriber     string `env:"VAPID_SUBSCRIBER,default=admin@notify.local"`
	DefaultIcon         string `env:"DEFAULT_ICON,default=/icon.png"`
	DefaultURL          string `env:"DEFAULT_URL,default=/"`
	DispatchConcurrency int    `env:"DISPATCH_CONCURRENCY,default=50"`
	RateLimitPerSec     int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	APIPort             int    `env:"API_PORT,default=8080"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
