package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Schedule struct {
		Cron       string `yaml:"cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Storage struct {
		HistoryFile string `yaml:"history_file"`
		ReportsDir  string `yaml:"reports_dir"`
	} `yaml:"storage"`
	Universe struct {
		WikipediaURL string `yaml:"wikipedia_url"`
		DataHubURL   string `yaml:"datahub_url"`
	} `yaml:"universe"`
	Screener struct {
		BatchSize  int  `yaml:"batch_size"`
		MaxWorkers int  `yaml:"max_workers"`
		DebugEval  bool `yaml:"debug_eval"`
		Filters    struct {
			PriceMin        float64 `yaml:"price_min"`
			PriceMax        float64 `yaml:"price_max"`
			PEMax           float64 `yaml:"pe_max"`
			PBMax           float64 `yaml:"pb_max"`
			CurrentRatioMin float64 `yaml:"current_ratio_min"`
			DebtToAssetsMax float64 `yaml:"debt_to_assets_max"`
		} `yaml:"filters"`
	} `yaml:"screener"`
	Technicals struct {
		MaxWorkers int      `yaml:"max_workers"`
		Exchanges  []string `yaml:"exchanges"`
		Interval   string   `yaml:"interval"`
	} `yaml:"technicals"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"llm"`
	HTTP struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"http"`
}

func (c *Config) Validate() error {
	if c.Screener.BatchSize <= 0 {
		return fmt.Errorf("screener.batch_size must be positive, got %d", c.Screener.BatchSize)
	}
	if c.Screener.MaxWorkers <= 0 {
		return fmt.Errorf("screener.max_workers must be positive, got %d", c.Screener.MaxWorkers)
	}
	if c.Technicals.MaxWorkers <= 0 {
		return fmt.Errorf("technicals.max_workers must be positive, got %d", c.Technicals.MaxWorkers)
	}
	f := c.Screener.Filters
	if f.PriceMin > f.PriceMax {
		return fmt.Errorf("screener.filters: price_min %.2f exceeds price_max %.2f", f.PriceMin, f.PriceMax)
	}
	if f.PEMax <= 0 || f.PBMax <= 0 {
		return fmt.Errorf("screener.filters: pe_max and pb_max must be positive")
	}
	switch c.LLM.Provider {
	case "GEMINI", "OPENAI", "NOOP":
	default:
		return fmt.Errorf("invalid llm.provider '%s': must be 'GEMINI', 'OPENAI', or 'NOOP'", c.LLM.Provider)
	}
	if len(c.Technicals.Exchanges) == 0 {
		return fmt.Errorf("technicals.exchanges cannot be empty")
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// DefaultConfig returns a config populated with the stock defaults. Used when
// no config file is supplied and by tests.
func DefaultConfig() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Schedule.Cron == "" {
		// Daily at 09:00 UTC (six-field cron expression, seconds first)
		c.Schedule.Cron = "0 0 9 * * *"
	}
	if c.Storage.HistoryFile == "" {
		c.Storage.HistoryFile = "history.json"
	}
	if c.Storage.ReportsDir == "" {
		c.Storage.ReportsDir = "reports"
	}
	if c.Universe.WikipediaURL == "" {
		c.Universe.WikipediaURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
	}
	if c.Universe.DataHubURL == "" {
		c.Universe.DataHubURL = "https://datahub.io/core/s-and-p-500-companies/r/constituents.csv"
	}
	if c.Screener.BatchSize == 0 {
		c.Screener.BatchSize = 25
	}
	if c.Screener.MaxWorkers == 0 {
		c.Screener.MaxWorkers = 8
	}
	f := &c.Screener.Filters
	if f.PriceMin == 0 {
		f.PriceMin = 10
	}
	if f.PriceMax == 0 {
		f.PriceMax = 100
	}
	if f.PEMax == 0 {
		f.PEMax = 15
	}
	if f.PBMax == 0 {
		f.PBMax = 2
	}
	if f.CurrentRatioMin == 0 {
		f.CurrentRatioMin = 1.5
	}
	if f.DebtToAssetsMax == 0 {
		f.DebtToAssetsMax = 1.0
	}
	if c.Technicals.MaxWorkers == 0 {
		c.Technicals.MaxWorkers = 8
	}
	if len(c.Technicals.Exchanges) == 0 {
		c.Technicals.Exchanges = []string{"NASDAQ", "NYSE", "AMEX"}
	}
	if c.Technicals.Interval == "" {
		c.Technicals.Interval = "1D"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "GEMINI"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.0-flash"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.2
	}
	if c.HTTP.TimeoutSeconds == 0 {
		c.HTTP.TimeoutSeconds = 30
	}
}
