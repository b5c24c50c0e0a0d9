package config

import (
	"os"
	"strconv"
	"strings"

	commoncfg "github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/common/config"
)

// Config haven-data（HTTP API + 提醒调度）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	MQTT      MQTTConfig
	Log       struct {
		Level  string
		Format string
	}
	Reminder ReminderConfig
	Auth     AuthConfig
	Drive    DriveConfig
}

// ReminderConfig 提醒引擎配置
// 定时批处理与手动触发使用两个独立的生日窗口，不要合并
type ReminderConfig struct {
	ScheduledLookaheadDays int    // 定时批处理生日窗口（默认 30 天）
	OnDemandLookaheadDays  int    // 手动触发生日窗口（默认 60 天）
	BirthdayGraceDays      int    // 生日提醒过期宽限（默认 2 天）
	SchedulerEnabled       bool   // 是否在 haven-data 进程内运行每日调度
	RunHour                int    // 每日运行时刻（0-23）
	Timezone               string // 计算 "今天" 使用的时区
	NotifyStream           string // Redis Streams 通知流，空则不发布
	NotifyStreamMaxLen     int64
	NotifyTopic            string // MQTT 通知主题
}

// MQTTConfig MQTT 配置（提醒通知，默认禁用）
type MQTTConfig struct {
	Enabled bool
	commoncfg.MQTTConfig
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret string // 认证服务签发 token 使用的 HS256 密钥
	Disabled  bool   // 本地开发可关闭认证
}

// DriveConfig 文档存储（Google Drive）接口地址
type DriveConfig struct {
	TokenURL      string
	APIBaseURL    string
	UploadBaseURL string
}

// Load 从环境变量加载配置
func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "haven")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "haven-data")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Reminder.ScheduledLookaheadDays = parseInt(getEnv("REMINDER_SCHEDULED_LOOKAHEAD_DAYS", "30"), 30)
	cfg.Reminder.OnDemandLookaheadDays = parseInt(getEnv("REMINDER_ONDEMAND_LOOKAHEAD_DAYS", "60"), 60)
	cfg.Reminder.BirthdayGraceDays = parseInt(getEnv("REMINDER_BIRTHDAY_GRACE_DAYS", "2"), 2)
	cfg.Reminder.SchedulerEnabled = getEnv("REMINDER_SCHEDULER_ENABLED", "true") == "true"
	cfg.Reminder.RunHour = parseInt(getEnv("REMINDER_RUN_HOUR", "6"), 6)
	if cfg.Reminder.RunHour < 0 || cfg.Reminder.RunHour > 23 {
		cfg.Reminder.RunHour = 6
	}
	cfg.Reminder.Timezone = getEnv("REMINDER_TIMEZONE", "UTC")
	cfg.Reminder.NotifyStream = getEnv("REMINDER_NOTIFY_STREAM", "reminders:events")
	cfg.Reminder.NotifyStreamMaxLen = int64(parseInt(getEnv("REMINDER_NOTIFY_STREAM_MAXLEN", "10000"), 10000))
	cfg.Reminder.NotifyTopic = getEnv("REMINDER_NOTIFY_TOPIC", "haven/reminders")

	cfg.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", "")
	cfg.Auth.Disabled = getEnv("AUTH_DISABLED", "false") == "true"

	cfg.Drive.TokenURL = getEnv("DRIVE_TOKEN_URL", "https://oauth2.googleapis.com/token")
	cfg.Drive.APIBaseURL = strings.TrimRight(getEnv("DRIVE_API_BASE_URL", "https://www.googleapis.com/drive/v3"), "/")
	cfg.Drive.UploadBaseURL = strings.TrimRight(getEnv("DRIVE_UPLOAD_BASE_URL", "https://www.googleapis.com/upload/drive/v3"), "/")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}
