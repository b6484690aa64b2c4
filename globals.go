package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RiemaLabs/modular-indexer-ordinals/checkpoint"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/index"
)

const (
	DefaultConfigFile = "config.json"
	EnvPrefix         = "ORD"
)

type Config struct {
	BitcoinRPC struct {
		Host       string `mapstructure:"host"`
		User       string `mapstructure:"user"`
		Password   string `mapstructure:"password"`
		DisableTLS bool   `mapstructure:"disableTLS"`
	} `mapstructure:"bitcoinRPC"`
	Index struct {
		DataDir        string        `mapstructure:"dataDir"`
		JournalDepth   uint64        `mapstructure:"journalDepth"`
		PollInterval   time.Duration `mapstructure:"pollInterval"`
		FeeAttribution string        `mapstructure:"feeAttribution"`
		CacheSize      int           `mapstructure:"cacheSize"`
		FetchAhead     int           `mapstructure:"fetchAhead"`
		StopHeight     uint64        `mapstructure:"stopHeight"`
	} `mapstructure:"index"`
	Service struct {
		Name        string `mapstructure:"name"`
		URL         string `mapstructure:"url"`
		Addr        string `mapstructure:"addr"`
		EnablePprof bool   `mapstructure:"enablePprof"`
	} `mapstructure:"service"`
	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Report struct {
		// "", "S3", "DA" or "NUBIT".
		Method string `mapstructure:"method"`
		// Milliseconds allowed for one upload.
		Timeout int `mapstructure:"timeout"`
		S3      struct {
			Region    string `mapstructure:"region"`
			Bucket    string `mapstructure:"bucket"`
			AccessKey string `mapstructure:"accessKey"`
			SecretKey string `mapstructure:"secretKey"`
		} `mapstructure:"s3"`
		Da struct {
			RPC       string `mapstructure:"rpc"`
			AuthToken string `mapstructure:"authToken"`
			Namespace string `mapstructure:"namespace"`
		} `mapstructure:"da"`
		Nubit struct {
			PrivateKey  string `mapstructure:"privateKey"`
			GasCoupon   string `mapstructure:"gasCoupon"`
			NamespaceID string `mapstructure:"namespaceID"`
			Network     string `mapstructure:"network"`
		} `mapstructure:"nubit"`
	} `mapstructure:"report"`
	Export struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"export"`
}

// Every key needs a default so that ORD_* variables can override it.
var defaults = map[string]any{
	"bitcoinRPC.host":       "localhost:8332",
	"bitcoinRPC.user":       "",
	"bitcoinRPC.password":   "",
	"bitcoinRPC.disableTLS": true,

	"index.dataDir":        "./data",
	"index.journalDepth":   index.DefaultConfig.JournalDepth,
	"index.pollInterval":   index.DefaultConfig.PollInterval,
	"index.feeAttribution": string(index.DefaultConfig.FeeAttribution),
	"index.cacheSize":      100_000,
	"index.fetchAhead":     index.DefaultConfig.FetchAhead,
	"index.stopHeight":     0,

	"service.name":        "ordinals-indexer",
	"service.url":         "",
	"service.addr":        ":8080",
	"service.enablePprof": false,

	"metrics.addr": ":6060",

	"log.level":  "info",
	"log.format": "text",

	"report.method":            "",
	"report.timeout":           60_000,
	"report.s3.region":         "",
	"report.s3.bucket":         "",
	"report.s3.accessKey":      "",
	"report.s3.secretKey":      "",
	"report.da.rpc":            "",
	"report.da.authToken":      "",
	"report.da.namespace":      "",
	"report.nubit.privateKey":  "",
	"report.nubit.gasCoupon":   "",
	"report.nubit.namespaceID": "",
	"report.nubit.network":     "",

	"export.dsn": "",
}

// Flags that override a config key.
var flagKeys = map[string]string{
	"data-dir":  "index.dataDir",
	"log-level": "log.level",
	"addr":      "service.addr",
	"stop":      "index.stopHeight",
}

// LoadConfig layers defaults, the config file, ORD_* variables and flags, in
// that order of precedence. A missing file is fine unless it was asked for
// explicitly.
func LoadConfig(path string, explicit bool, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ord.ErrConfiguration, path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ord.ErrConfiguration, err)
	}
	return &cfg, nil
}

func (c *Config) IndexConfig() (index.Config, error) {
	mode, err := index.ParseFeeAttribution(c.Index.FeeAttribution)
	if err != nil {
		return index.Config{}, err
	}
	cfg := index.Config{
		FeeAttribution: mode,
		JournalDepth:   c.Index.JournalDepth,
		PollInterval:   c.Index.PollInterval,
		FetchAhead:     c.Index.FetchAhead,
		StopHeight:     ord.Height(c.Index.StopHeight),
	}
	return cfg, cfg.Validate()
}

func (c *Config) Identification() checkpoint.IndexerIdentification {
	return checkpoint.IndexerIdentification{
		URL:          c.Service.URL,
		Name:         c.Service.Name,
		Version:      version,
		MetaProtocol: checkpoint.MetaProtocol,
	}
}

func (c *Config) ReportTimeout() time.Duration {
	return time.Duration(c.Report.Timeout) * time.Millisecond
}

func SetupLogging(c *Config) error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("%w: %v", ord.ErrConfiguration, err)
	}
	logrus.SetLevel(level)

	switch c.Log.Format {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("%w: unknown log format %q", ord.ErrConfiguration, c.Log.Format)
	}
	return nil
}
