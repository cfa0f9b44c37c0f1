package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/worktime/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the Worktime configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump the resolved configuration")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	// Load configuration
	if _, err := config.Load(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with -dump)
	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)

	// Warn about unknown keys
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	// If dump requested, show the resolved configuration
	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 60))
		_, _ = fmt.Fprintln(os.Stdout, "RESOLVED CONFIGURATION")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 60))
		dumpConfig(configPath)
	}

	return nil
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	validKeys := getValidKeys()

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !validKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// getValidKeys returns a set of all valid configuration keys
func getValidKeys() map[string]bool {
	return map[string]bool{
		// Server
		"server.http_port":    true,
		"server.metrics_port": true,
		"server.bind_address": true,

		// Storage
		"storage.type":                 true,
		"storage.bolt.path":            true,
		"storage.redis.host":           true,
		"storage.redis.port":           true,
		"storage.redis.password":       true,
		"storage.redis.db":             true,
		"storage.redis.pool_size":      true,
		"storage.redis.min_idle_conns": true,
		"storage.redis.dial_timeout":   true,
		"storage.redis.read_timeout":   true,
		"storage.redis.write_timeout":  true,

		// Logging
		"logging.level":  true,
		"logging.format": true,

		// Tracking
		"tracking.timespans":               true,
		"tracking.bar_timespan":            true,
		"tracking.bar_width":               true,
		"tracking.default_era_description": true,
		"tracking.ratio_over":              true,
		"tracking.ratio_under":             true,

		// Web
		"web.cookie_name":   true,
		"web.cookie_secret": true,
		"web.session_ttl":   true,
	}
}

// dumpConfig prints the file's settings merged over nothing, one
// sorted key per line. Secrets are masked.
func dumpConfig(configPath string) {
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Could not re-read configuration: %v\n", err)
		return
	}

	keys := v.AllKeys()
	sort.Strings(keys)

	for _, key := range keys {
		value := v.Get(key)
		if key == "web.cookie_secret" && value != "" {
			value = "********"
		}
		fmt.Fprintf(os.Stdout, "%-36s %v\n", key, value)
	}
}
