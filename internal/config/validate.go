package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("fetcher.max_retries must be >= 0, got %d", cfg.Fetcher.MaxRetries)
	}

	if cfg.Scrape.Delay < 0 {
		return fmt.Errorf("scrape.delay must be >= 0")
	}
	if cfg.Scrape.ProductPathPrefix == "" {
		return fmt.Errorf("scrape.product_path_prefix must not be empty")
	}
	if cfg.Scrape.CollectionPath == "" {
		return fmt.Errorf("scrape.collection_path must not be empty")
	}
	if cfg.Scrape.FallbackCategorySlug == "" {
		return fmt.Errorf("scrape.fallback_category_slug must not be empty")
	}

	if cfg.Images.MaxSizeMB <= 0 {
		return fmt.Errorf("images.max_size_mb must be > 0, got %d", cfg.Images.MaxSizeMB)
	}
	if cfg.Images.WebpQuality < 1 || cfg.Images.WebpQuality > 100 {
		return fmt.Errorf("images.webp_quality must be in 1..100, got %d", cfg.Images.WebpQuality)
	}

	if cfg.Storage.MongoURI != "" {
		if _, err := url.Parse(cfg.Storage.MongoURI); err != nil {
			return fmt.Errorf("invalid storage.mongo_uri: %w", err)
		}
		if cfg.Storage.MongoDatabase == "" || cfg.Storage.MongoCollection == "" {
			return fmt.Errorf("storage.mongo_database and storage.mongo_collection are required with mongo_uri")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level %q is not supported (valid: debug, info, warn, error)", cfg.Logging.Level)
	}

	return nil
}

// ValidateURL checks that a raw URL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
