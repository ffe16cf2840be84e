package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"etariff-downloader/lib/browser"
	"etariff-downloader/lib/configutil"
	"etariff-downloader/lib/scrapers/etariff"
	"etariff-downloader/services/downloader"
)

type Config struct {
	BaseUrl   string `json:"base_url"`
	OutputDir string `json:"output_dir"`

	Headless     bool `json:"headless"`
	WindowWidth  int  `json:"window_width"`
	WindowHeight int  `json:"window_height"`

	PageCap       int `json:"page_cap"`
	RetryAttempts int `json:"retry_attempts"`
	MaxItems      int `json:"max_items"`
	Workers       int `json:"workers"`

	GridReadyTimeoutSeconds    int `json:"grid_ready_timeout_seconds"`
	PagerAdvanceTimeoutSeconds int `json:"pager_advance_timeout_seconds"`
	ExportTimeoutSeconds       int `json:"export_timeout_seconds"`
}

func defaultConfig() Config {
	return Config{
		BaseUrl:                    etariff.DefaultBaseUrl,
		OutputDir:                  "TariffXML",
		Headless:                   false,
		WindowWidth:                1920,
		WindowHeight:               1080,
		PageCap:                    350,
		RetryAttempts:              3,
		Workers:                    4,
		GridReadyTimeoutSeconds:    30,
		PagerAdvanceTimeoutSeconds: 15,
		ExportTimeoutSeconds:       60,
	}
}

// the config file is optional, absent values fall back to defaults
func loadConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	if err != nil {
		return Config{}, err
	}

	def := defaultConfig()
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = def.BaseUrl
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = def.OutputDir
	}
	if cfg.WindowWidth == 0 {
		cfg.WindowWidth = def.WindowWidth
	}
	if cfg.WindowHeight == 0 {
		cfg.WindowHeight = def.WindowHeight
	}
	if cfg.PageCap == 0 {
		cfg.PageCap = def.PageCap
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.Workers == 0 {
		cfg.Workers = def.Workers
	}
	if cfg.GridReadyTimeoutSeconds == 0 {
		cfg.GridReadyTimeoutSeconds = def.GridReadyTimeoutSeconds
	}
	if cfg.PagerAdvanceTimeoutSeconds == 0 {
		cfg.PagerAdvanceTimeoutSeconds = def.PagerAdvanceTimeoutSeconds
	}
	if cfg.ExportTimeoutSeconds == 0 {
		cfg.ExportTimeoutSeconds = def.ExportTimeoutSeconds
	}
	return cfg, nil
}

// collectIdentifiers runs the browser-driven collection phase against a
// fresh rendering session.
func collectIdentifiers(ctx context.Context, cfg Config) ([]int, error) {
	session, shutdown, err := browser.NewPlaywrightSession(browser.PlaywrightOptions{
		Headless:     cfg.Headless,
		WindowWidth:  cfg.WindowWidth,
		WindowHeight: cfg.WindowHeight,
	})
	if err != nil {
		return nil, fmt.Errorf("start browser session: %w", err)
	}
	defer shutdown()

	listUrl := strings.TrimSuffix(cfg.BaseUrl, "/") + etariff.TariffListPath
	if err := session.Navigate(ctx, listUrl); err != nil {
		return nil, fmt.Errorf("navigate to tariff list: %w", err)
	}

	nav := etariff.NewGridNavigator(session, etariff.NavigatorOptions{
		ReadyTimeout:   time.Second * time.Duration(cfg.GridReadyTimeoutSeconds),
		AdvanceTimeout: time.Second * time.Duration(cfg.PagerAdvanceTimeoutSeconds),
	})
	return etariff.CollectIDs(ctx, nav, etariff.CollectOptions{
		PageCap: cfg.PageCap,
	})
}

// runDownloads feeds the identifier set through the pipeline driver and
// returns the final report.
func runDownloads(ctx context.Context, cfg Config, ids []int) (downloader.Report, error) {
	client, err := etariff.NewClient(etariff.ClientOptions{
		BaseUrl: cfg.BaseUrl,
		Timeout: time.Second * time.Duration(cfg.ExportTimeoutSeconds),
	})
	if err != nil {
		return downloader.Report{}, fmt.Errorf("create export client: %w", err)
	}
	store, err := downloader.NewStore(cfg.OutputDir)
	if err != nil {
		return downloader.Report{}, err
	}

	svc := downloader.New(client, store, downloader.Options{
		RetryAttempts: cfg.RetryAttempts,
		MaxItems:      cfg.MaxItems,
		Workers:       cfg.Workers,
	})
	return svc.Run(ctx, ids), nil
}

func writeIDFile(path string, ids []int) error {
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = strconv.Itoa(id)
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
}

func readIDFile(path string) ([]int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("invalid identifier %q in %s", line, path)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
