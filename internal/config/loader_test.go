package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/osker/internal/config"
)

var configEnvVars = []string{
	"OSKER_CONFIG",
	"OSKER_ADDR",
	"OSKER_LOG_LEVEL",
	"OSKER_LOG_FORMAT",
	"OSKER_QUEUE_SIZE",
	"OSKER_WORKER_COUNT",
	"OSKER_REFRESH_INTERVAL",
	"OSKER_REFRESH_ON_START",
	"OSKER_CORS_ALLOWED_ORIGINS",
	"OSKER_API_REQUESTS_PER_SECOND",
	"OSKER_API_PAGE_SIZE",
	"OSKER_API_TIMEOUT",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "osker-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	_ = f.Close()
	return f.Name()
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.PartitionSize, convey.ShouldEqual, 4096)
			convey.So(cfg.RefreshInterval, convey.ShouldEqual, 10*time.Minute)
			convey.So(cfg.APIBaseURL, convey.ShouldEqual, "https://ch.tetr.io/api/")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"*"})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("OSKER_ADDR", ":8080")
			_ = os.Setenv("OSKER_QUEUE_SIZE", "64")
			_ = os.Setenv("OSKER_WORKER_COUNT", "3")
			_ = os.Setenv("OSKER_REFRESH_INTERVAL", "90s")
			_ = os.Setenv("OSKER_REFRESH_ON_START", "false")
			_ = os.Setenv("OSKER_API_REQUESTS_PER_SECOND", "2.5")
			_ = os.Setenv("OSKER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
			convey.So(cfg.RefreshInterval, convey.ShouldEqual, 90*time.Second)
			convey.So(cfg.RefreshOnStart, convey.ShouldBeFalse)
			convey.So(cfg.APIRequestsPerSecond, convey.ShouldEqual, 2.5)
			convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
log_format: json
partition_size: 512
api_timeout: 3s
api_max_players: 200
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("OSKER_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			convey.So(cfg.PartitionSize, convey.ShouldEqual, 512)
			convey.So(cfg.APITimeout, convey.ShouldEqual, 3*time.Second)
			convey.So(cfg.APIMaxPlayers, convey.ShouldEqual, 200)

			convey.Convey("And env vars override the file", func() {
				_ = os.Setenv("OSKER_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.PartitionSize, convey.ShouldEqual, 512)
			})
		})

		convey.Convey("When the config file is missing", func() {
			_ = os.Setenv("OSKER_CONFIG", "/nonexistent/osker.yaml")

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a value fails validation", func() {
			_ = os.Setenv("OSKER_API_PAGE_SIZE", "500")

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the log format is unknown", func() {
			_ = os.Setenv("OSKER_LOG_FORMAT", "xml")

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a value cannot be parsed", func() {
			_ = os.Setenv("OSKER_API_TIMEOUT", "soon")

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})
	})
}
