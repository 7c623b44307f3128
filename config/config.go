// Package config layers the server's configuration the way the teacher
// and the rest of the retrieval pack do: viper holds defaults and an
// optional config file, pflag supplies CLI flags bound into viper, and
// caarlos0/env does a final typed decode of environment variables over
// the result. A fsnotify-backed viper watch lets the default game
// settings (applied only to freshly created rooms) be edited on disk
// without a restart.
package config

import (
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/fsnotify/fsnotify"
	"github.com/quizroom/server/internal/room"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ServerConfig is the process-wide configuration, decoded from flags,
// an optional config file, and environment variables, in that ascending
// order of precedence.
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	MetricsPort     int           `env:"METRICS_PORT" envDefault:"9090"`
	EnableCORS      bool          `env:"ENABLE_CORS" envDefault:"true"`
	TokenSecret     string        `env:"TOKEN_SECRET" envDefault:"dev-secret-change-me"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	RoomGracePeriod time.Duration `env:"ROOM_GRACE_PERIOD" envDefault:"10m"`
}

// BindFlags registers the CLI flags cobra's serve command exposes, each
// mirrored into viper so file/env layering still applies to unset flags.
func BindFlags(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("host", "0.0.0.0", "address to listen on")
	flags.Int("port", 8080, "websocket/http port")
	flags.Int("metrics-port", 9090, "prometheus /metrics port")
	flags.Bool("enable-cors", true, "allow cross-origin websocket upgrades")
	flags.String("token-secret", "", "HMAC secret for host bearer tokens")
	flags.String("log-level", "info", "zerolog level")
	flags.Duration("room-grace-period", 10*time.Minute, "idle duration before a room is retired")
	flags.String("config", "", "path to a game-settings config file")

	v.BindPFlag("host", flags.Lookup("host"))
	v.BindPFlag("port", flags.Lookup("port"))
	v.BindPFlag("metrics_port", flags.Lookup("metrics-port"))
	v.BindPFlag("enable_cors", flags.Lookup("enable-cors"))
	v.BindPFlag("token_secret", flags.Lookup("token-secret"))
	v.BindPFlag("log_level", flags.Lookup("log-level"))
	v.BindPFlag("room_grace_period", flags.Lookup("room-grace-period"))
}

// Load resolves a ServerConfig from viper (flags + optional file), then
// lets environment variables override anything still at its default via
// caarlos0/env's typed decode.
func Load(v *viper.Viper) (*ServerConfig, error) {
	cfg := &ServerConfig{
		Host:            v.GetString("host"),
		Port:            v.GetInt("port"),
		MetricsPort:     v.GetInt("metrics_port"),
		EnableCORS:      v.GetBool("enable_cors"),
		TokenSecret:     v.GetString("token_secret"),
		LogLevel:        v.GetString("log_level"),
		RoomGracePeriod: v.GetDuration("room_grace_period"),
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GameSettingsSource hands out the current default GameSettings applied
// to newly created rooms, hot-reloadable from the config file watched by
// WatchGameSettings. Existing rooms never observe a change (§3).
type GameSettingsSource struct {
	current atomic.Value // room.GameSettings
}

// NewGameSettingsSource seeds the source with the built-in defaults.
func NewGameSettingsSource() *GameSettingsSource {
	s := &GameSettingsSource{}
	s.current.Store(room.DefaultGameSettings())
	return s
}

// Current returns the presently active default GameSettings.
func (s *GameSettingsSource) Current() room.GameSettings {
	return s.current.Load().(room.GameSettings)
}

// WatchGameSettings re-reads the configured default game settings from v
// every time its backing file changes on disk, via fsnotify. Call once
// after Load, if a config file is in use.
func WatchGameSettings(v *viper.Viper, source *GameSettingsSource, log zerolog.Logger) {
	reload := func() {
		settings := room.GameSettings{
			DefaultTimerDuration:       v.GetInt("default_timer_duration"),
			DefaultQuestionPoints:      v.GetInt("default_question_points"),
			DefaultBonusIncrement:      v.GetInt("default_bonus_increment"),
			SpeedBonusEnabled:          v.GetBool("speed_bonus_enabled"),
			SpeedBonusNumTeams:         v.GetInt("speed_bonus_num_teams"),
			SpeedBonusFirstPlacePoints: v.GetInt("speed_bonus_first_place_points"),
		}
		if settings.DefaultTimerDuration == 0 {
			settings = room.DefaultGameSettings()
		}
		source.current.Store(settings)
		log.Info().Msg("reloaded default game settings")
	}

	v.OnConfigChange(func(fsnotify.Event) { reload() })
	v.WatchConfig()
	reload()
}
