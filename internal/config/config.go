package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	CAN          CANConfig          `mapstructure:"can"`
	Pack         PackConfig         `mapstructure:"pack"`
	Publish      PublishConfig      `mapstructure:"publish"`
	Log          LogConfig          `mapstructure:"log"`
	MessageQueue MessageQueueConfig `mapstructure:"message_queue"`
}

type MessageQueueConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Type     string         `mapstructure:"type"`     // rabbitmq | kafka
	Encoding string         `mapstructure:"encoding"` // json | cbor
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type RabbitMQConfig struct {
	URL         string `mapstructure:"url"`
	VirtualHost string `mapstructure:"virtual_host"`
	Exchange    string `mapstructure:"exchange"`
	RoutingKey  string `mapstructure:"routing_key"`
	QueueName   string `mapstructure:"queue_name"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// ServerConfig CAN-over-TCP 网桥接入
type ServerConfig struct {
	Port        int           `mapstructure:"port"`
	Host        string        `mapstructure:"host"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// CANConfig 帧来源
type CANConfig struct {
	Source     string `mapstructure:"source"`    // socketcan | tcp | replay
	Interface  string `mapstructure:"interface"` // socketcan: can0 / vcan0
	ReplayFile string `mapstructure:"replay_file"`
	Realtime   bool   `mapstructure:"realtime"`   // replay: 按时间戳节奏回放
	DebugDump  int    `mapstructure:"debug_dump"` // 详细打印前 N 帧
	Buffer     int    `mapstructure:"buffer"`
}

type PackConfig struct {
	ID string `mapstructure:"id"`
}

type PublishConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	StatsInterval time.Duration `mapstructure:"stats_interval"`
	Workers       int           `mapstructure:"workers"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 29536)
	v.SetDefault("server.idle_timeout", 30*time.Second)
	v.SetDefault("can.source", "socketcan")
	v.SetDefault("can.interface", "can0")
	v.SetDefault("can.debug_dump", 20)
	v.SetDefault("can.buffer", 1024)
	v.SetDefault("pack.id", "ess-lfp-48s")
	v.SetDefault("publish.interval", 500*time.Millisecond)
	v.SetDefault("publish.stats_interval", 2*time.Second)
	v.SetDefault("publish.workers", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.filename", "logs/ess-gateway.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("message_queue.type", "rabbitmq")
	v.SetDefault("message_queue.encoding", "json")
	v.SetDefault("message_queue.kafka.batch_timeout", 50*time.Millisecond)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 检查枚举类配置项
func (c *Config) Validate() error {
	switch c.CAN.Source {
	case "socketcan", "tcp", "replay":
	default:
		return fmt.Errorf("unknown can.source %q", c.CAN.Source)
	}
	if c.CAN.Source == "replay" && c.CAN.ReplayFile == "" {
		return fmt.Errorf("can.replay_file is required for replay source")
	}
	switch c.MessageQueue.Encoding {
	case "json", "cbor":
	default:
		return fmt.Errorf("unknown message_queue.encoding %q", c.MessageQueue.Encoding)
	}
	if c.Publish.Workers <= 0 {
		return fmt.Errorf("publish.workers must be positive")
	}
	return nil
}
