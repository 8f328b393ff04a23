package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --snapshot
// on both "cairn query" and "cairn serve").
type Flag struct {
	// Name is the long flag name (e.g. "snapshot").
	Name string

	// Shorthand is the one-letter short flag (e.g. "s"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "snapshot.path").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddBoolFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagSnapshot   = "snapshot"
	FlagAPIListen  = "api-listen"
	FlagAPITarget  = "api-target"
	FlagAutoCreate = "auto-create"
)

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddAPITargetFlag registers the --api-target flag on cmd. Client mode is
// opt-in: the flag default stays empty so commands open the snapshot
// locally unless the flag is passed. The bare flag (no value) opts in with
// the default target URL; command PreRunE hooks replace that with the
// configured client.api_target.
func AddAPITargetFlag(cmd *cobra.Command, target *string) {
	def := DefaultFlagSet()[FlagAPITarget]
	cmd.Flags().StringVar(target, def.Name, "", def.Description)
	cmd.Flags().Lookup(def.Name).NoOptDefVal = defaultString(def.ViperKey)
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
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

// DefaultFlagSet returns the standard flag definitions shared by the
// cairn commands.
func DefaultFlagSet() FlagSet {
	return FlagSet{
		FlagSnapshot: {
			Name:        "snapshot",
			Shorthand:   "s",
			ViperKey:    "snapshot.path",
			Description: "Path to the evidence snapshot file (.json or .sqlite)",
		},
		FlagAPIListen: {
			Name:        "listen",
			Shorthand:   "l",
			ViperKey:    "api.listen",
			Description: "Address for the API server to listen on",
		},
		FlagAPITarget: {
			Name:        "api-target",
			ViperKey:    "client.api_target",
			Description: "Resolve through a running cairn API server instead of opening a snapshot",
		},
		FlagAutoCreate: {
			Name:        "auto-create",
			ViperKey:    "cache.auto_create",
			Description: "Create placeholder entities for identity lookups that miss",
		},
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
