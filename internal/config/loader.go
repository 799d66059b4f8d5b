package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied on top by the command layer.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("WEBSHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("webshelf")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".webshelf"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// A missing config file is fine unless one was named explicitly.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides bind.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.max_retries", cfg.Fetcher.MaxRetries)
	v.SetDefault("fetcher.retry_delay", cfg.Fetcher.RetryDelay)

	v.SetDefault("scrape.delay", cfg.Scrape.Delay)
	v.SetDefault("scrape.product_path_prefix", cfg.Scrape.ProductPathPrefix)
	v.SetDefault("scrape.product_link_class", cfg.Scrape.ProductLinkClass)
	v.SetDefault("scrape.collection_path", cfg.Scrape.CollectionPath)
	v.SetDefault("scrape.home_label", cfg.Scrape.HomeLabel)
	v.SetDefault("scrape.image_cdn_marker", cfg.Scrape.ImageCDNMarker)
	v.SetDefault("scrape.description_id", cfg.Scrape.DescriptionID)
	v.SetDefault("scrape.characteristics_id", cfg.Scrape.CharacteristicsID)
	v.SetDefault("scrape.gallery_class", cfg.Scrape.GalleryClass)
	v.SetDefault("scrape.introtext_class", cfg.Scrape.IntrotextClass)
	v.SetDefault("scrape.size_option_class", cfg.Scrape.SizeOptionClass)
	v.SetDefault("scrape.color_option_class", cfg.Scrape.ColorOptionClass)
	v.SetDefault("scrape.price_class", cfg.Scrape.PriceClass)
	v.SetDefault("scrape.old_price_class", cfg.Scrape.OldPriceClass)
	v.SetDefault("scrape.fallback_category_slug", cfg.Scrape.FallbackCategorySlug)
	v.SetDefault("scrape.fallback_category_name", cfg.Scrape.FallbackCategoryName)

	v.SetDefault("images.dir", cfg.Images.Dir)
	v.SetDefault("images.max_size_mb", cfg.Images.MaxSizeMB)
	v.SetDefault("images.webp_quality", cfg.Images.WebpQuality)

	v.SetDefault("database.dsn", cfg.Database.DSN)

	v.SetDefault("storage.json_path", cfg.Storage.JSONPath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
