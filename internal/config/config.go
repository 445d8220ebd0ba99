package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
)

type Server struct {
    Port                   string `json:"port"`
    RequestTimeoutSec      int    `json:"request_timeout_sec"`
    DefaultLimit           int    `json:"default_limit"`
    MaxCompaniesPerRequest int    `json:"max_companies_per_request"`
}

type Finnhub struct {
    APIKey            string `json:"api_key"`
    Endpoint          string `json:"endpoint"`
    TimeoutSec        int    `json:"timeout_sec"`
    MaxCallsPerMinute int    `json:"max_calls_per_minute"`
    MaxConcurrent     int    `json:"max_concurrent"`
}

type Cache struct {
    TTLSeconds int `json:"ttl_sec"`
}

type Data struct {
    ConstituentsPath string `json:"constituents_path"`
}

type Config struct {
    Server  Server  `json:"server"`
    Finnhub Finnhub `json:"finnhub"`
    Cache   Cache   `json:"cache"`
    Data    Data    `json:"data"`
}

func Default() Config {
    return Config{
        Server: Server{
            Port:                   "8080",
            RequestTimeoutSec:      15,
            DefaultLimit:           50,
            MaxCompaniesPerRequest: 80,
        },
        Finnhub: Finnhub{
            Endpoint:          "https://api.finnhub.io",
            TimeoutSec:        15,
            MaxCallsPerMinute: 50,
            MaxConcurrent:     5,
        },
        Cache: Cache{TTLSeconds: 300},
        Data:  Data{ConstituentsPath: "data/sp500_constituents.json"},
    }
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields for secrecy.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.json"); err == nil {
            path = "config.json"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := json.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Server.RequestTimeoutSec = x }
    }
    if v := os.Getenv("MAX_COMPANIES_PER_REQUEST"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Server.MaxCompaniesPerRequest = x }
    }
    if v := os.Getenv("FINNHUB_API_KEY"); v != "" { cfg.Finnhub.APIKey = v }
    if v := os.Getenv("FINNHUB_ENDPOINT"); v != "" { cfg.Finnhub.Endpoint = v }
    if v := os.Getenv("FINNHUB_TIMEOUT_SECONDS"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Finnhub.TimeoutSec = x }
    }
    if v := os.Getenv("FINNHUB_MAX_CALLS_PER_MIN"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Finnhub.MaxCallsPerMinute = x }
    }
    if v := os.Getenv("FINNHUB_MAX_CONCURRENT"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x > 0 { cfg.Finnhub.MaxConcurrent = x }
    }
    if v := os.Getenv("QUOTE_CACHE_TTL_SECONDS"); v != "" {
        var x int; fmt.Sscanf(v, "%d", &x); if x >= 0 { cfg.Cache.TTLSeconds = x }
    }
    if v := os.Getenv("CONSTITUENTS_PATH"); v != "" { cfg.Data.ConstituentsPath = v }
}
