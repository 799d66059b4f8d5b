package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for webshelf.
type Config struct {
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"   yaml:"scrape"`
	Images   ImagesConfig   `mapstructure:"images"   yaml:"images"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// FetcherConfig controls page fetching.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"` // http or browser
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	MaxRetries      int           `mapstructure:"max_retries"       yaml:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"       yaml:"retry_delay"`
}

// ScrapeConfig holds the markup markers the extractor keys on. The defaults
// match the insales-built origin the pipeline was written against; pointing
// the pipeline at another storefront means overriding these, not the code.
type ScrapeConfig struct {
	Delay time.Duration `mapstructure:"delay" yaml:"delay"`

	ProductPathPrefix string `mapstructure:"product_path_prefix" yaml:"product_path_prefix"`
	ProductLinkClass  string `mapstructure:"product_link_class"  yaml:"product_link_class"`
	CollectionPath    string `mapstructure:"collection_path"     yaml:"collection_path"`
	HomeLabel         string `mapstructure:"home_label"          yaml:"home_label"`
	ImageCDNMarker    string `mapstructure:"image_cdn_marker"    yaml:"image_cdn_marker"`

	DescriptionID     string `mapstructure:"description_id"     yaml:"description_id"`
	CharacteristicsID string `mapstructure:"characteristics_id" yaml:"characteristics_id"`
	GalleryClass      string `mapstructure:"gallery_class"      yaml:"gallery_class"`
	IntrotextClass    string `mapstructure:"introtext_class"    yaml:"introtext_class"`
	SizeOptionClass   string `mapstructure:"size_option_class"  yaml:"size_option_class"`
	ColorOptionClass  string `mapstructure:"color_option_class" yaml:"color_option_class"`
	PriceClass        string `mapstructure:"price_class"        yaml:"price_class"`
	OldPriceClass     string `mapstructure:"old_price_class"    yaml:"old_price_class"`

	FallbackCategorySlug string `mapstructure:"fallback_category_slug" yaml:"fallback_category_slug"`
	FallbackCategoryName string `mapstructure:"fallback_category_name" yaml:"fallback_category_name"`
}

// ImagesConfig controls the image fetch/convert step.
type ImagesConfig struct {
	Dir         string `mapstructure:"dir"          yaml:"dir"`
	MaxSizeMB   int64  `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	WebpQuality int    `mapstructure:"webp_quality" yaml:"webp_quality"`
}

// DatabaseConfig points at the catalog database. An empty DSN selects the
// in-memory store, which only makes sense together with --dry-run.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// StorageConfig controls record export and the optional archive sink.
type StorageConfig struct {
	JSONPath        string `mapstructure:"json_path"        yaml:"json_path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			Type:            "http",
			UserAgent:       "Mozilla/5.0 (compatible; webshelf/1.0)",
			RequestTimeout:  30 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024,
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			MaxRetries:      2,
			RetryDelay:      2 * time.Second,
		},
		Scrape: ScrapeConfig{
			Delay:                500 * time.Millisecond,
			ProductPathPrefix:    "/product/",
			ProductLinkClass:     "inner",
			CollectionPath:       "/collection/",
			HomeLabel:            "главная",
			ImageCDNMarker:       "static.insales-cdn.com/images/products",
			DescriptionID:        "product-description",
			CharacteristicsID:    "product-characteristics",
			GalleryClass:         "product-gallery",
			IntrotextClass:       "product-introtext",
			SizeOptionClass:      "option-razmer",
			ColorOptionClass:     "option-cvet",
			PriceClass:           "js-product-price",
			OldPriceClass:        "js-product-old-price",
			FallbackCategorySlug: "vse-kollektsii",
			FallbackCategoryName: "Все товары",
		},
		Images: ImagesConfig{
			Dir:         "./data/images",
			MaxSizeMB:   5,
			WebpQuality: 80,
		},
		Storage: StorageConfig{
			JSONPath:        "data/products.json",
			MongoDatabase:   "webshelf",
			MongoCollection: "scraped_products",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
