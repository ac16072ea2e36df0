package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pagewidgets/pagewidgets-server/internal/client"
	"github.com/pagewidgets/pagewidgets-server/internal/markers"
)

const (
	envPrefix      = "WIDGETCTL"
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyServer      = "server"
	cfgKeyMarkers     = "markers"
	cfgKeyMarkersPath = "markers-path"
	cfgKeyLogLevel    = "log-level"
)

// settings is the resolved widgetctl configuration.
type settings struct {
	Server      string
	Markers     string
	MarkersPath string
	LogLevel    string
}

// defaultConfigDir is where config.yaml and the marker store live unless
// overridden.
func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "widgetctl")
	}
	return ".widgetctl"
}

// loadSettings merges flags, WIDGETCTL_* environment variables and
// config.yaml, in that order of precedence. configFile may name a file
// explicitly; otherwise config.yaml is looked up in configDir and the
// working directory. A missing file is not an error.
func loadSettings(flags *pflag.FlagSet, configFile, configDir string) (settings, error) {
	v := viper.New()
	v.SetDefault(cfgKeyServer, client.DefaultBaseURL)
	v.SetDefault(cfgKeyMarkers, markers.DriverSQLite)
	v.SetDefault(cfgKeyMarkersPath, filepath.Join(configDir, "markers.db"))
	v.SetDefault(cfgKeyLogLevel, "warn")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range []string{cfgKeyServer, cfgKeyMarkers, cfgKeyMarkersPath, cfgKeyLogLevel} {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return settings{}, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	s := settings{
		Server:      v.GetString(cfgKeyServer),
		Markers:     v.GetString(cfgKeyMarkers),
		MarkersPath: v.GetString(cfgKeyMarkersPath),
		LogLevel:    v.GetString(cfgKeyLogLevel),
	}
	switch s.Markers {
	case markers.DriverMemory, markers.DriverSQLite, markers.DriverBadger:
	default:
		return settings{}, fmt.Errorf("unknown marker store %q (want memory, sqlite or badger)", s.Markers)
	}
	return s, nil
}
