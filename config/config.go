// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package config

import (
	"runtime"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/statmodel/model"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration of statmodel.
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ModelConfig holds the defaults of model builders.
type ModelConfig struct {
	NoiseVariance float64 `mapstructure:"noise_variance" validate:"gte=0"`
	NumComponents int     `mapstructure:"num_components" validate:"gte=0"`
	TotalVariance float64 `mapstructure:"total_variance" validate:"gt=0,lte=1"`
	Tolerance     float64 `mapstructure:"tolerance" validate:"gt=0"`
	Method        string  `mapstructure:"method" validate:"oneof=svd eigen"`
	Version       string  `mapstructure:"version" validate:"oneof=0.8 0.9"`
	Folds         int     `mapstructure:"folds" validate:"gte=2"`
	Jobs          int     `mapstructure:"jobs" validate:"gt=0"`
	Seed          int64   `mapstructure:"seed"`
}

// Params converts the configuration to builder hyper-parameters.
func (c *ModelConfig) Params() model.Params {
	params := model.Params{
		model.TotalVariance: c.TotalVariance,
		model.Tolerance:     c.Tolerance,
		model.Jobs:          c.Jobs,
	}
	if c.NumComponents > 0 {
		params[model.NumComponents] = c.NumComponents
	}
	if c.Seed != 0 {
		params[model.RandomState] = c.Seed
	}
	return params
}

// ModelVersion parses the version of the model file format.
func (c *ModelConfig) ModelVersion() (model.Version, error) {
	switch c.Version {
	case "0.8":
		return model.Version08, nil
	case "0.9":
		return model.Version09, nil
	default:
		return model.Version{}, errors.NotValidf("model version %q", c.Version)
	}
}

// StorageConfig locates the model store. URL is one of
//
//	file:///path/to/dir
//	s3://bucket/prefix
//	gs://bucket/prefix
//	azblob://container/prefix
type StorageConfig struct {
	URL   string          `mapstructure:"url" validate:"required,storage_url"`
	S3    S3Config        `mapstructure:"s3"`
	GCS   GCSConfig       `mapstructure:"gcs"`
	Azure AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	Endpoint         string `mapstructure:"endpoint"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			NoiseVariance: 0,
			TotalVariance: 1,
			Tolerance:     1e-5,
			Method:        "svd",
			Version:       "0.9",
			Folds:         5,
			Jobs:          runtime.NumCPU(),
		},
		Storage: StorageConfig{
			URL: "file://models",
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [model]
	viper.SetDefault("model.noise_variance", defaultConfig.Model.NoiseVariance)
	viper.SetDefault("model.num_components", defaultConfig.Model.NumComponents)
	viper.SetDefault("model.total_variance", defaultConfig.Model.TotalVariance)
	viper.SetDefault("model.tolerance", defaultConfig.Model.Tolerance)
	viper.SetDefault("model.method", defaultConfig.Model.Method)
	viper.SetDefault("model.version", defaultConfig.Model.Version)
	viper.SetDefault("model.folds", defaultConfig.Model.Folds)
	viper.SetDefault("model.jobs", defaultConfig.Model.Jobs)
	viper.SetDefault("model.seed", defaultConfig.Model.Seed)
	// [storage]
	viper.SetDefault("storage.url", defaultConfig.Storage.URL)
	viper.SetDefault("storage.s3.use_ssl", defaultConfig.Storage.S3.UseSSL)
}

type configBinding struct {
	key string
	env string
}

// LoadConfig loads configuration from a toml file. Environment variables prefixed by
// STATMODEL_ override the file, and an empty path loads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	setDefault()

	// bind environment bindings
	bindings := []configBinding{
		{"storage.url", "STATMODEL_STORAGE_URL"},
		{"storage.s3.endpoint", "S3_ENDPOINT"},
		{"storage.s3.access_key_id", "S3_ACCESS_KEY_ID"},
		{"storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY"},
		{"storage.gcs.credentials_file", "GCS_CREDENTIALS_FILE"},
		{"storage.azure.connection_string", "AZURE_STORAGE_CONNECTION_STRING"},
	}
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}
	viper.SetEnvPrefix("STATMODEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// load config file
	if path != "" {
		viper.SetConfigType("toml")
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// unmarshal config file
	var conf Config
	if err := viper.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
