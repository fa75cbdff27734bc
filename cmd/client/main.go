package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/syncplay/internal/app"
	"github.com/sharetube/syncplay/internal/settings"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	host = configVar[string]{
		envKey:       "SYNCPLAY_HOST",
		flagKey:      "host",
		defaultValue: "127.0.0.1",
	}
	port = configVar[int]{
		envKey:       "SYNCPLAY_PORT",
		flagKey:      "port",
		defaultValue: 8123,
	}
	coordinatorHost = configVar[string]{
		envKey:       "SYNCPLAY_COORDINATOR_HOST",
		flagKey:      "coordinator-host",
		defaultValue: "syncplay.pl",
	}
	coordinatorPort = configVar[int]{
		envKey:       "SYNCPLAY_COORDINATOR_PORT",
		flagKey:      "coordinator-port",
		defaultValue: 8999,
	}
	username = configVar[string]{
		envKey:       "SYNCPLAY_USERNAME",
		flagKey:      "username",
		defaultValue: "",
	}
	logLevel = configVar[string]{
		envKey:       "SYNCPLAY_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	tolerance = configVar[string]{
		envKey:       "SYNCPLAY_TOLERANCE",
		flagKey:      "tolerance",
		defaultValue: "",
	}
	rewindThreshold = configVar[string]{
		envKey:       "SYNCPLAY_REWIND_THRESHOLD",
		flagKey:      "rewind-threshold",
		defaultValue: "",
	}
	disableRewind = configVar[string]{
		envKey:       "SYNCPLAY_DISABLE_REWIND",
		flagKey:      "disable-rewind",
		defaultValue: "",
	}
	seekSettle = configVar[string]{
		envKey:       "SYNCPLAY_SEEK_SETTLE",
		flagKey:      "seek-settle",
		defaultValue: "",
	}
	redisEnabled = configVar[bool]{
		envKey:       "REDIS_ENABLED",
		flagKey:      "redis-enabled",
		defaultValue: false,
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	redisDB = configVar[int]{
		envKey:       "REDIS_DB",
		flagKey:      "redis-db",
		defaultValue: 0,
	}
	sessionTTL = configVar[time.Duration]{
		envKey:       "SYNCPLAY_SESSION_TTL",
		flagKey:      "session-ttl",
		defaultValue: 24 * time.Hour,
	}
)

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}
}

func loadAppConfig() *app.AppConfig {
	loadDotEnv()

	pflag.String(host.flagKey, host.defaultValue, "Player bridge host")
	pflag.Int(port.flagKey, port.defaultValue, "Player bridge port")
	pflag.String(coordinatorHost.flagKey, coordinatorHost.defaultValue, "Coordinator host")
	pflag.Int(coordinatorPort.flagKey, coordinatorPort.defaultValue, "Coordinator port")
	pflag.String(username.flagKey, username.defaultValue, "Name announced to other viewers")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(tolerance.flagKey, tolerance.defaultValue, "Drift tolerance in milliseconds")
	pflag.String(rewindThreshold.flagKey, rewindThreshold.defaultValue, "Rewind threshold in seconds")
	pflag.String(disableRewind.flagKey, disableRewind.defaultValue, "Never seek backwards to resync")
	pflag.String(seekSettle.flagKey, seekSettle.defaultValue, "Delay after a local seek in milliseconds")
	pflag.Bool(redisEnabled.flagKey, redisEnabled.defaultValue, "Record sync state in redis")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Int(redisDB.flagKey, redisDB.defaultValue, "Redis database")
	pflag.Duration(sessionTTL.flagKey, sessionTTL.defaultValue, "How long recorded sync state is kept")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(coordinatorHost.flagKey, coordinatorHost.envKey)
	viper.BindEnv(coordinatorPort.flagKey, coordinatorPort.envKey)
	viper.BindEnv(username.flagKey, username.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(tolerance.flagKey, tolerance.envKey)
	viper.BindEnv(rewindThreshold.flagKey, rewindThreshold.envKey)
	viper.BindEnv(disableRewind.flagKey, disableRewind.envKey)
	viper.BindEnv(seekSettle.flagKey, seekSettle.envKey)
	viper.BindEnv(redisEnabled.flagKey, redisEnabled.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(redisDB.flagKey, redisDB.envKey)
	viper.BindEnv(sessionTTL.flagKey, sessionTTL.envKey)

	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(coordinatorHost.flagKey, coordinatorHost.defaultValue)
	viper.SetDefault(coordinatorPort.flagKey, coordinatorPort.defaultValue)
	viper.SetDefault(username.flagKey, username.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(tolerance.flagKey, tolerance.defaultValue)
	viper.SetDefault(rewindThreshold.flagKey, rewindThreshold.defaultValue)
	viper.SetDefault(disableRewind.flagKey, disableRewind.defaultValue)
	viper.SetDefault(seekSettle.flagKey, seekSettle.defaultValue)
	viper.SetDefault(redisEnabled.flagKey, redisEnabled.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(redisDB.flagKey, redisDB.defaultValue)
	viper.SetDefault(sessionTTL.flagKey, sessionTTL.defaultValue)

	config := &app.AppConfig{
		Host:            viper.GetString(host.flagKey),
		Port:            viper.GetInt(port.flagKey),
		CoordinatorHost: viper.GetString(coordinatorHost.flagKey),
		CoordinatorPort: viper.GetInt(coordinatorPort.flagKey),
		Username:        viper.GetString(username.flagKey),
		LogLevel:        viper.GetString(logLevel.flagKey),
		Sync: settings.Raw{
			ToleranceMs:     viper.GetString(tolerance.flagKey),
			RewindThreshold: viper.GetString(rewindThreshold.flagKey),
			DisableRewind:   viper.GetString(disableRewind.flagKey),
			SeekSettleMs:    viper.GetString(seekSettle.flagKey),
		},
		RedisEnabled:  viper.GetBool(redisEnabled.flagKey),
		RedisHost:     viper.GetString(redisHost.flagKey),
		RedisPort:     viper.GetInt(redisPort.flagKey),
		RedisPassword: viper.GetString(redisPassword.flagKey),
		RedisDB:       viper.GetInt(redisDB.flagKey),
		SessionTTL:    viper.GetDuration(sessionTTL.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
