package models

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid config")

// Bounds is a lat/lon bounding box used to download a street network.
type Bounds struct {
	MinLat float64 `mapstructure:"min_lat" yaml:"min_lat"`
	MinLon float64 `mapstructure:"min_lon" yaml:"min_lon"`
	MaxLat float64 `mapstructure:"max_lat" yaml:"max_lat"`
	MaxLon float64 `mapstructure:"max_lon" yaml:"max_lon"`
}

func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// CoarseGraining is one homogenization setting for a street network.
type CoarseGraining struct {
	Meters           float64 `mapstructure:"meters" yaml:"meters"`
	TargetEdgeLength float64 `mapstructure:"target_edge_length" yaml:"target_edge_length"`
}

type StreetNetworkConfig struct {
	Name        string   `mapstructure:"name" yaml:"name"`
	File        string   `mapstructure:"file" yaml:"file"`
	Bounds      Bounds   `mapstructure:"bounds" yaml:"bounds"`
	HighwayTags []string `mapstructure:"highway_tags" yaml:"highway_tags"`
	// Homogenization of the base network
	CoarseGraining CoarseGraining `mapstructure:"coarse_graining" yaml:"coarse_graining"`
	// Additional homogenizations simulated as separate topologies
	Variants []CoarseGraining `mapstructure:"variants" yaml:"variants"`
}

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`
	BucketName string `mapstructure:"bucket_name" yaml:"bucket_name"`
	Region     string `mapstructure:"region" yaml:"region"`
}

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
}

type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	URI        string `mapstructure:"uri" yaml:"uri"`
	Database   string `mapstructure:"database" yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

type OSMConfig struct {
	APIURL  string        `mapstructure:"api_url" yaml:"api_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type Config struct {
	Seed        int64    `mapstructure:"seed"`
	DataDir     string   `mapstructure:"data_dir"`
	FigureDir   string   `mapstructure:"figure_dir"`
	NumRequests int      `mapstructure:"num_requests"`
	RateMin     float64  `mapstructure:"rate_min"`
	RateMax     float64  `mapstructure:"rate_max"`
	RateSteps   int      `mapstructure:"rate_steps"`
	Workers     int      `mapstructure:"workers"`
	ShardIndex  int      `mapstructure:"shard_index"`
	ShardCount  int      `mapstructure:"shard_count"`
	Topologies  []string `mapstructure:"topologies"`

	StreetNetworks []StreetNetworkConfig `mapstructure:"street_networks"`

	OutputFormat      string             `mapstructure:"output_format"`
	OutputDestination string             `mapstructure:"output_destination"`
	CloudStorage      CloudStorageConfig `mapstructure:"cloud_storage"`

	KafkaEnabled    bool   `mapstructure:"kafka_enabled"`
	KafkaBrokerList string `mapstructure:"kafka_broker_list"`
	KafkaTopic      string `mapstructure:"kafka_topic"`

	Database DatabaseConfig `mapstructure:"database"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	OSM      OSMConfig      `mapstructure:"osm"`

	FigureFormats []string `mapstructure:"figure_formats"`
	LogLevel      string   `mapstructure:"log_level"`
}

// DefaultStreetNetworks are Goettingen, the Harz and central Berlin. Bounding boxes
// are kept small enough for the public OSM API.
func DefaultStreetNetworks() []StreetNetworkConfig {
	tags := []string{
		"motorway", "trunk", "primary", "secondary", "tertiary", "unclassified", "residential",
		"motorway_link", "trunk_link", "primary_link", "secondary_link", "tertiary_link", "living_street",
	}
	return []StreetNetworkConfig{
		{
			Name:           "goe",
			Bounds:         Bounds{MinLat: 51.520, MinLon: 9.900, MaxLat: 51.560, MaxLon: 9.970},
			HighwayTags:    tags,
			CoarseGraining: CoarseGraining{Meters: 100, TargetEdgeLength: 200},
		},
		{
			Name:           "harz",
			Bounds:         Bounds{MinLat: 51.780, MinLon: 10.580, MaxLat: 51.840, MaxLon: 10.680},
			HighwayTags:    tags,
			CoarseGraining: CoarseGraining{Meters: 100, TargetEdgeLength: 200},
		},
		{
			Name:           "berlin",
			Bounds:         Bounds{MinLat: 52.495, MinLon: 13.360, MaxLat: 52.535, MaxLon: 13.440},
			HighwayTags:    tags,
			CoarseGraining: CoarseGraining{Meters: 100, TargetEdgeLength: 200},
			Variants: []CoarseGraining{
				{Meters: 200, TargetEdgeLength: 400},
				{Meters: 200, TargetEdgeLength: 600},
				{Meters: 200, TargetEdgeLength: 800},
			},
		},
	}
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("seed", 42)
	v.SetDefault("data_dir", "data")
	v.SetDefault("figure_dir", "figures")
	v.SetDefault("num_requests", 10000)
	v.SetDefault("rate_min", 0.1)
	v.SetDefault("rate_max", 40.0)
	v.SetDefault("rate_steps", 100)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("shard_index", slurmShardIndex())
	v.SetDefault("shard_count", envInt("SLURM_ARRAY_TASK_COUNT", 1))
	v.SetDefault("topologies", []string{})
	v.SetDefault("output_format", OutputFormatParquet)
	v.SetDefault("output_destination", DestinationLocal)
	v.SetDefault("cloud_storage.provider", "s3")
	v.SetDefault("cloud_storage.bucket_name", "")
	v.SetDefault("cloud_storage.region", "eu-central-1")
	v.SetDefault("kafka_enabled", false)
	v.SetDefault("kafka_broker_list", "localhost:9092")
	v.SetDefault("kafka_topic", "sweep_points")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.url", "")
	v.SetDefault("mongo.enabled", false)
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "ridetopo")
	v.SetDefault("mongo.collection", "sweep_points")
	v.SetDefault("osm.api_url", "https://api.openstreetmap.org/api/0.6")
	v.SetDefault("osm.timeout", 5*time.Minute)
	v.SetDefault("figure_formats", []string{"png", "svg"})
	v.SetDefault("log_level", "info")
}

// slurmShardIndex maps the task id of a slurm array job to a 0-based shard
// index, so arrays declared as --array=1-N work as well as 0-based ones.
func slurmShardIndex() int {
	id, err := strconv.Atoi(os.Getenv("SLURM_ARRAY_TASK_ID"))
	if err != nil {
		return 0
	}
	return id - envInt("SLURM_ARRAY_TASK_MIN", 0)
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

// LoadConfig initializes and reads the configuration using Viper
func LoadConfig(cfgFile string) (*Config, error) {
	return LoadConfigFrom(viper.GetViper(), cfgFile)
}

func LoadConfigFrom(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(".ridetopo")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("RIDETOPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// a missing default config file is fine, an explicit one is not
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if len(config.StreetNetworks) == 0 {
		config.StreetNetworks = DefaultStreetNetworks()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (cfg *Config) Validate() error {
	switch {
	case cfg.NumRequests < 1:
		return fmt.Errorf("%w: num_requests must be positive, got %d", ErrInvalidConfig, cfg.NumRequests)
	case cfg.RateSteps < 1:
		return fmt.Errorf("%w: rate_steps must be positive, got %d", ErrInvalidConfig, cfg.RateSteps)
	case cfg.RateMin <= 0:
		return fmt.Errorf("%w: rate_min must be positive, got %g", ErrInvalidConfig, cfg.RateMin)
	case cfg.RateMax < cfg.RateMin:
		return fmt.Errorf("%w: rate_max %g below rate_min %g", ErrInvalidConfig, cfg.RateMax, cfg.RateMin)
	case cfg.Workers < 1:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, cfg.Workers)
	case cfg.ShardCount < 1:
		return fmt.Errorf("%w: shard_count must be positive, got %d", ErrInvalidConfig, cfg.ShardCount)
	case cfg.ShardIndex < 0 || cfg.ShardIndex >= cfg.ShardCount:
		return fmt.Errorf("%w: shard_index %d outside [0, %d)", ErrInvalidConfig, cfg.ShardIndex, cfg.ShardCount)
	}

	switch cfg.OutputFormat {
	case OutputFormatParquet, OutputFormatCSV, OutputFormatJSON, OutputFormatConsole:
	default:
		return fmt.Errorf("%w: unsupported output format %q", ErrInvalidConfig, cfg.OutputFormat)
	}
	switch cfg.OutputDestination {
	case DestinationLocal:
	case DestinationCloud:
		if cfg.CloudStorage.BucketName == "" {
			return fmt.Errorf("%w: cloud destination needs cloud_storage.bucket_name", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported output destination %q", ErrInvalidConfig, cfg.OutputDestination)
	}

	seen := make(map[string]struct{}, len(cfg.StreetNetworks))
	for _, sn := range cfg.StreetNetworks {
		if sn.Name == "" {
			return fmt.Errorf("%w: street network without name", ErrInvalidConfig)
		}
		if _, ok := seen[sn.Name]; ok {
			return fmt.Errorf("%w: duplicate street network %q", ErrInvalidConfig, sn.Name)
		}
		seen[sn.Name] = struct{}{}
		if sn.File == "" && sn.Bounds.IsZero() {
			return fmt.Errorf("%w: street network %q needs a file or bounds", ErrInvalidConfig, sn.Name)
		}
	}
	return nil
}

// RateRange returns the normalized request rates of the sweep, spaced
// equally between RateMin and RateMax (inclusive).
func (cfg *Config) RateRange() []float64 {
	return Linspace(cfg.RateMin, cfg.RateMax, cfg.RateSteps)
}

func Linspace(start, stop float64, num int) []float64 {
	if num <= 0 {
		return nil
	}
	if num == 1 {
		return []float64{start}
	}
	out := make([]float64, num)
	step := (stop - start) / float64(num-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[num-1] = stop
	return out
}
