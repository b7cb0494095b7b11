package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/semmy-space/credstore/internal/config"
	"github.com/semmy-space/credstore/internal/mask"
	"github.com/semmy-space/credstore/internal/output"
	"github.com/semmy-space/credstore/internal/secrets"
)

// ConfigGetCmd implements config get command
type ConfigGetCmd struct {
	Key string `arg:"" help:"Config key to get (e.g., store_type, mask_salt)"`
}

// Run executes the get command
func (cmd *ConfigGetCmd) Run(cfg *config.Config, streams *Streams) error {
	value, err := cfg.Get(cmd.Key)
	if err != nil {
		return unknownKey(cmd.Key)
	}

	fmt.Fprintln(streams.Out, value)
	return nil
}

// ConfigSetCmd implements config set command
type ConfigSetCmd struct {
	Key   string `arg:"" help:"Config key to set"`
	Value string `arg:"" help:"Value to set"`
}

// Run executes the set command
func (cmd *ConfigSetCmd) Run(cfg *config.Config, provider *secrets.Provider, streams *Streams) error {
	// Validate key exists
	if _, err := cfg.Get(cmd.Key); err != nil {
		return unknownKey(cmd.Key)
	}

	switch cmd.Key {
	case "store_type":
		if types := provider.Types(); !slices.Contains(types, cmd.Value) {
			return output.NewCLIError(output.KindConfig,
				fmt.Sprintf("Invalid store type: %s. Valid types: %s", cmd.Value, strings.Join(types, ", ")))
		}
	case "default_output":
		modes := append(slices.Clone(output.Modes), "auto")
		if !slices.Contains(modes, cmd.Value) {
			return output.NewCLIError(output.KindConfig,
				fmt.Sprintf("Invalid output mode: %s. Valid modes: %s", cmd.Value, strings.Join(modes, ", ")))
		}
	case "mask_salt":
		if err := mask.ValidateSalt(cmd.Value); err != nil {
			return output.NewCLIError(output.KindConfig, "Invalid mask salt").WithErr(err)
		}
		fmt.Fprintf(streams.Err, "Note: mask_salt is stored in the config file in clear text.\n")
	case "mask_iteration":
		if n, err := strconv.ParseInt(cmd.Value, 10, 32); (err == nil && n < 1) || errors.Is(err, strconv.ErrRange) {
			return output.NewCLIError(output.KindConfig, "Invalid mask iteration").WithErr(mask.ErrInvalidIteration)
		}
	}

	if err := cfg.Set(cmd.Key, cmd.Value); err != nil {
		return output.NewCLIError(output.KindConfig, "Failed to set config").WithErr(err)
	}

	fmt.Fprintf(streams.Err, "Set %s = %s\n", cmd.Key, cmd.Value)
	return nil
}

// ConfigUnsetCmd implements config unset command
type ConfigUnsetCmd struct {
	Key string `arg:"" help:"Config key to remove"`
}

// Run executes the unset command
func (cmd *ConfigUnsetCmd) Run(cfg *config.Config, streams *Streams) error {
	if _, err := cfg.Get(cmd.Key); err != nil {
		return unknownKey(cmd.Key)
	}

	if err := cfg.Unset(cmd.Key); err != nil {
		return output.NewCLIError(output.KindConfig, "Failed to unset config").WithErr(err)
	}

	fmt.Fprintf(streams.Err, "Unset %s\n", cmd.Key)
	return nil
}

// ConfigListConfigCmd implements config list command
type ConfigListConfigCmd struct{}

// Run executes the list command
func (cmd *ConfigListConfigCmd) Run(cfg *config.Config, fp *FormatterProvider) error {
	type ConfigItem struct {
		Key   string
		Value string
	}

	var items []ConfigItem
	for _, key := range config.Keys() {
		value, err := cfg.Get(key)
		if err != nil {
			return unknownKey(key)
		}
		if key == "mask_salt" {
			value = maskSecret(value)
		}
		items = append(items, ConfigItem{Key: key, Value: value})
	}

	cols := []output.Column{
		{Name: "Key", Key: "Key"},
		{Name: "Value", Key: "Value"},
	}

	return fp.Formatter.PrintList(items, cols)
}

// maskSecret masks sensitive values, showing only last 4 characters
func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

// ConfigPathCmd implements config path command
type ConfigPathCmd struct{}

// Run executes the path command
func (cmd *ConfigPathCmd) Run(cfg *config.Config, streams *Streams) error {
	path := cfg.Path()

	fmt.Fprintln(streams.Out, path)

	// Print existence hint to stderr
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(streams.Err, "(file does not exist yet - will be created on first write)\n")
	} else {
		fmt.Fprintf(streams.Err, "(file exists)\n")
	}

	return nil
}

func unknownKey(key string) *output.CLIError {
	return output.NewCLIError(output.KindConfig, fmt.Sprintf("Unknown config key: %s", key)).
		WithHint("Valid keys: " + strings.Join(config.Keys(), ", "))
}
