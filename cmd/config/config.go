// Package config loads quill settings from the config file, the environment
// and flags.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-quill/pkg/autosave"
	"github.com/mattsolo1/grove-quill/pkg/persistence"
	"github.com/mattsolo1/grove-quill/pkg/service"
)

var (
	cfgFile         string
	ProjectOverride string
)

func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "quill")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("QUILL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	viper.SetDefault("data_dir", filepath.Join(home, ".local", "share", "quill"))
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("autosave.interval", autosave.DefaultInterval)
	viper.SetDefault("autosave.flush_on_switch", true)
	viper.SetDefault("search.limit", persistence.DefaultSearchLimit)
	viper.SetDefault("images.thumbnail_width", persistence.DefaultThumbnailWidth)
	viper.SetDefault("render.style", "dark")

	// A missing config file is fine; defaults apply.
	_ = viper.ReadInConfig()
}

// ServiceConfig builds the service configuration from the loaded settings.
func ServiceConfig() *service.Config {
	interval := viper.GetDuration("autosave.interval")
	if interval <= 0 {
		interval = autosave.DefaultInterval
	}
	return &service.Config{
		DataDir:          viper.GetString("data_dir"),
		AutosaveInterval: interval,
		FlushOnSwitch:    viper.GetBool("autosave.flush_on_switch"),
		SearchLimit:      viper.GetInt("search.limit"),
		ThumbnailWidth:   viper.GetInt("images.thumbnail_width"),
	}
}

// NewLogger creates the process logger at the configured level.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}

func InitService() (*service.Service, error) {
	logger := NewLogger()
	return service.New(ServiceConfig(), logrus.NewEntry(logger))
}

func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/quill/config.yaml)")
	cmd.PersistentFlags().StringVarP(&ProjectOverride, "project", "P", "", "Project path or registered name (default: most recently used)")
}
