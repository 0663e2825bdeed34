// Package constants provides shared constants for the solar-forecast application.
package constants

// Program constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DefaultSubsidyRate is the share of the system cost covered by the subsidy (60%)
	DefaultSubsidyRate = 0.60

	// DefaultSavingsRate is the assumed fraction of the energy bill removed by solar (90%)
	DefaultSavingsRate = 0.90

	// DefaultHorizonYears is the last projected year; the projection holds HorizonYears+1 points
	DefaultHorizonYears = 10

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Input defaults, matching the dashboard's initial slider positions.
const (
	// DefaultMonthlyCost is the default current monthly energy spend (CLP)
	DefaultMonthlyCost = 500000.0

	// DefaultInflationPercent is the default annual energy-price inflation
	DefaultInflationPercent = 5.0

	// DefaultSystemCost is the default total system cost (CLP)
	DefaultSystemCost = 15000000.0
)

// Dashboard slider bounds
const (
	MonthlyCostMin  = 100000.0
	MonthlyCostMax  = 2000000.0
	MonthlyCostStep = 50000.0
	InflationMin    = 2.0
	InflationMax    = 15.0

	// DefaultCurrency is the ISO code of the currency the dashboard works in
	DefaultCurrency = "CLP"

	// DefaultTitle is the page title of the dashboard
	DefaultTitle = "Simulador de Inversión y Proyección de Utilidades"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment overrides of configuration keys
	EnvPrefix = "SOLAR"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the dashboard
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024

	// DefaultEvaluationLimit is the number of evaluation requests a client may send per window
	DefaultEvaluationLimit = 5
)

// Validation constants
const (
	// CurrencyTolerance is the tolerance for currency comparisons (one peso)
	CurrencyTolerance = 1.0
)
