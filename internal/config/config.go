// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/makey/solar-forecast/internal/projection"
	"github.com/makey/solar-forecast/pkg/constants"
	"github.com/makey/solar-forecast/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for solar-forecast.
type Configuration struct {
	Inputs    projection.Inputs     `yaml:"inputs"`
	Program   projection.Parameters `yaml:"program"`
	Dashboard DashboardConfig       `yaml:"dashboard"`
	Team      []TeamMember          `yaml:"team,omitempty"`
	Logging   LoggingConfig         `yaml:"logging,omitempty"`
	Output    OutputConfig          `yaml:"output,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// DashboardConfig holds the presentation settings of the web dashboard.
type DashboardConfig struct {
	Title           string  `yaml:"title" json:"title"`
	Currency        string  `yaml:"currency" json:"currency"`
	MonthlyCostMin  float64 `yaml:"monthlyCostMin" json:"monthlyCostMin"`
	MonthlyCostMax  float64 `yaml:"monthlyCostMax" json:"monthlyCostMax"`
	MonthlyCostStep float64 `yaml:"monthlyCostStep" json:"monthlyCostStep"`
	InflationMin    float64 `yaml:"inflationMin" json:"inflationMin"`
	InflationMax    float64 `yaml:"inflationMax" json:"inflationMax"`
}

// Bounds returns the slider ranges used for input warnings.
func (d DashboardConfig) Bounds() validation.Bounds {
	return validation.Bounds{
		MonthlyCostMin: d.MonthlyCostMin,
		MonthlyCostMax: d.MonthlyCostMax,
		InflationMin:   d.InflationMin,
		InflationMax:   d.InflationMax,
	}
}

// TeamMember is a contact shown on the dashboard and notified of evaluation requests.
type TeamMember struct {
	Name  string `yaml:"name" json:"name"`
	Role  string `yaml:"role,omitempty" json:"role,omitempty"`
	Phone string `yaml:"phone,omitempty" json:"phone,omitempty"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("inputs.monthlyCost", constants.DefaultMonthlyCost)
	v.SetDefault("inputs.inflationPercent", constants.DefaultInflationPercent)
	v.SetDefault("inputs.systemCost", constants.DefaultSystemCost)

	v.SetDefault("program.subsidyRate", constants.DefaultSubsidyRate)
	v.SetDefault("program.savingsRate", constants.DefaultSavingsRate)
	v.SetDefault("program.horizonYears", constants.DefaultHorizonYears)

	v.SetDefault("dashboard.title", constants.DefaultTitle)
	v.SetDefault("dashboard.currency", constants.DefaultCurrency)
	v.SetDefault("dashboard.monthlyCostMin", constants.MonthlyCostMin)
	v.SetDefault("dashboard.monthlyCostMax", constants.MonthlyCostMax)
	v.SetDefault("dashboard.monthlyCostStep", constants.MonthlyCostStep)
	v.SetDefault("dashboard.inflationMin", constants.InflationMin)
	v.SetDefault("dashboard.inflationMax", constants.InflationMax)

	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", "")
	return v
}

// Default returns the configuration used when no file is provided. Environment
// overrides still apply.
func Default() *Configuration {
	var configuration Configuration
	// Decoding the defaults cannot fail: every key maps onto a field of the right kind.
	_ = newViper().Unmarshal(&configuration)
	return &configuration
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Validate rejects configurations the projection cannot run with.
func (c *Configuration) Validate() error {
	if err := validation.ValidateInputs(c.Inputs); err != nil {
		return fmt.Errorf("invalid inputs: %w", err)
	}
	if err := c.Program.Validate(); err != nil {
		return fmt.Errorf("invalid program: %w", err)
	}
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			return err
		}
	}
	d := c.Dashboard
	if d.MonthlyCostMin > d.MonthlyCostMax {
		return fmt.Errorf("dashboard monthly cost range is inverted (%v > %v)", d.MonthlyCostMin, d.MonthlyCostMax)
	}
	if d.InflationMin > d.InflationMax {
		return fmt.Errorf("dashboard inflation range is inverted (%v > %v)", d.InflationMin, d.InflationMax)
	}
	if d.MonthlyCostStep < 0 {
		return fmt.Errorf("dashboard monthly cost step must not be negative, got %v", d.MonthlyCostStep)
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	return validation.InputWarnings(c.Inputs, c.Dashboard.Bounds())
}
