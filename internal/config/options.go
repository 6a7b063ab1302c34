package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/camcorder/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// LoadOptions fills a CLI options struct with precedence CLI flags > env
// vars > config file. Fields opt in with `toml:"path"` and `env:"KEY"`
// tags; env keys are prefixed with CAMCORDER_. Flags explicitly changed on
// the command line are never overwritten.
func LoadOptions(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	var file map[string]any
	if path := configPathField(v, t); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if changed[flagName(t.Field(i).Name)] || !field.CanSet() {
			continue
		}
		if path := t.Field(i).Tag.Get("toml"); path != "" && file != nil {
			if value := lookupPath(file, path); value != nil {
				assign(field, value)
			}
		}
		if key := t.Field(i).Tag.Get("env"); key != "" {
			if value := os.Getenv("CAMCORDER_" + key); value != "" {
				assignString(field, value)
			}
		}
	}
	return nil
}

// LoadLoggingConfig reads the [logging] table of a config file. Missing or
// unreadable files yield the defaults. Keys other than level and format
// are per-module level overrides.
func LoadLoggingConfig(path string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	var raw struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}
	for key, value := range raw.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}

func configPathField(v reflect.Value, t reflect.Type) string {
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).Name == "Config" {
			return v.Field(i).String()
		}
	}
	return ""
}

// flagName converts a field name to its kebab-case flag.
// "LoggingLevel" becomes "logging-level".
func flagName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// lookupPath walks a dotted key path through nested TOML tables.
func lookupPath(table map[string]any, path string) any {
	parts := strings.Split(path, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := table[part].(map[string]any)
		if !ok {
			return nil
		}
		table = next
	}
	return table[parts[len(parts)-1]]
}

func assign(field reflect.Value, value any) {
	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	}
}

func assignString(field reflect.Value, value string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(n)
		}
	}
}
