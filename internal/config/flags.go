package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag that maps to a
// config key.
type Flag struct {
	Name        string
	Shorthand   string
	ViperKey    string
	Description string
}

// FlagSet maps registry keys to flags.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagDatabase  = "db"
	FlagModel     = "model"
	FlagLogFormat = "log-format"
	FlagMetrics   = "metrics-listen"
)

// Flags is the registry used by the factdb commands.
var Flags = FlagSet{
	FlagDatabase:  {Name: "db", ViperKey: "database", Description: "path to the SQLite fact database"},
	FlagModel:     {Name: "model", Shorthand: "m", ViperKey: "model", Description: "path to the fact type model (.cue, .yaml)"},
	FlagLogFormat: {Name: "log-format", ViperKey: "log.format", Description: "log format (text|pretty|json)"},
	FlagMetrics:   {Name: "metrics-listen", ViperKey: "metrics.listen", Description: "address to serve Prometheus metrics on"},
}

// AddStringFlag registers a persistent string flag on cmd from fs.
// The default comes from NewDefaultConfig so it cannot drift.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.PersistentFlags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.PersistentFlags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper. Call it
// after InitViper so flags take precedence over env and file values.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}
		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}
		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}
