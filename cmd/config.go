package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"db-refactor/internal/refactor"
	"db-refactor/internal/schema"
)

type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
	Active bool   `mapstructure:"active"`
}

// NamingConfig is the "naming" section: how table names become reference names.
type NamingConfig struct {
	SingularTables bool              `mapstructure:"singular_tables"`
	Inflections    map[string]string `mapstructure:"inflections"`
}

// GetActiveDBConfig returns the currently active database configuration.
func GetActiveDBConfig() (*DBConfig, error) {
	var configs []DBConfig

	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active database found in config (set active: true) and no --dsn given")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active databases found (only one can be active)")
	}

	return activeConfig, nil
}

// GetResolver builds the association resolver from "naming" and "associations".
func GetResolver() (*refactor.Resolver, error) {
	var naming NamingConfig
	if err := viper.UnmarshalKey("naming", &naming); err != nil {
		return nil, fmt.Errorf("failed to parse naming config: %w", err)
	}
	var overrides []refactor.AssociationOverride
	if err := viper.UnmarshalKey("associations", &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse associations config: %w", err)
	}
	return &refactor.Resolver{
		Inflector: &schema.Inflector{
			SingularTables: naming.SingularTables,
			Inflections:    naming.Inflections,
		},
		Overrides: overrides,
	}, nil
}

// GetMoverConfig reads "settings" (Flag > Config > Default).
func GetMoverConfig() refactor.Config {
	return refactor.Config{
		PageSize:  viper.GetInt("settings.page_size"),
		EagerLoad: viper.GetBool("settings.eager_load"),
	}
}

func init() {
	viper.SetDefault("settings.page_size", refactor.PagingLimit)
	viper.SetDefault("settings.eager_load", true)
}
