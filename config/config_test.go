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
	"os"
	"path/filepath"
	"testing"

	"github.com/gorse-io/statmodel/model"
	"github.com/juju/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	viper.Reset()
	config, err := LoadConfig("config.toml")
	require.NoError(t, err)

	// [model]
	assert.Equal(t, 0.01, config.Model.NoiseVariance)
	assert.Equal(t, 0, config.Model.NumComponents)
	assert.Equal(t, 0.95, config.Model.TotalVariance)
	assert.Equal(t, 1e-5, config.Model.Tolerance)
	assert.Equal(t, "svd", config.Model.Method)
	assert.Equal(t, "0.9", config.Model.Version)
	assert.Equal(t, 5, config.Model.Folds)
	assert.Equal(t, 4, config.Model.Jobs)
	assert.Equal(t, int64(42), config.Model.Seed)
	// [storage]
	assert.Equal(t, "s3://statmodel/models", config.Storage.URL)
	assert.Equal(t, "localhost:9000", config.Storage.S3.Endpoint)
	assert.Equal(t, "minioadmin", config.Storage.S3.AccessKeyID)
	assert.Equal(t, "minioadmin", config.Storage.S3.SecretAccessKey)
	assert.False(t, config.Storage.S3.UseSSL)
	assert.Empty(t, config.Storage.GCS.CredentialsFile)
	assert.Empty(t, config.Storage.Azure.ConnectionString)
}

func TestLoadConfig_Default(t *testing.T) {
	viper.Reset()
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
}

func TestLoadConfig_Environment(t *testing.T) {
	viper.Reset()
	t.Setenv("STATMODEL_STORAGE_URL", "gs://bucket/prefix")
	t.Setenv("STATMODEL_MODEL_NOISE_VARIANCE", "0.5")
	t.Setenv("S3_ENDPOINT", "s3.example.com")
	t.Setenv("AZURE_STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")
	config, err := LoadConfig("config.toml")
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/prefix", config.Storage.URL)
	assert.Equal(t, 0.5, config.Model.NoiseVariance)
	assert.Equal(t, "s3.example.com", config.Storage.S3.Endpoint)
	assert.Equal(t, "UseDevelopmentStorage=true", config.Storage.Azure.ConnectionString)
}

func TestLoadConfig_Invalid(t *testing.T) {
	for name, content := range map[string]string{
		"method":  "[model]\nmethod = \"qr\"\n",
		"noise":   "[model]\nnoise_variance = -1\n",
		"total":   "[model]\ntotal_variance = 1.5\n",
		"folds":   "[model]\nfolds = 1\n",
		"version": "[model]\nversion = \"1.0\"\n",
		"scheme":  "[storage]\nurl = \"ftp://host/dir\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			viper.Reset()
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			_, err := LoadConfig(path)
			assert.ErrorIs(t, err, errors.NotValid)
		})
	}
	viper.Reset()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestModelConfig_Params(t *testing.T) {
	config := GetDefaultConfig().Model
	params := config.Params()
	assert.NotContains(t, params, model.NumComponents)
	assert.NotContains(t, params, model.RandomState)
	assert.Equal(t, 1.0, params.GetFloat64(model.TotalVariance, 0))

	config.NumComponents = 3
	config.Seed = 7
	params = config.Params()
	assert.Equal(t, 3, params.GetInt(model.NumComponents, 0))
	assert.Equal(t, int64(7), params.GetInt64(model.RandomState, 0))
}

func TestModelConfig_ModelVersion(t *testing.T) {
	config := GetDefaultConfig().Model
	version, err := config.ModelVersion()
	require.NoError(t, err)
	assert.Equal(t, model.Version09, version)
	config.Version = "0.8"
	version, err = config.ModelVersion()
	require.NoError(t, err)
	assert.Equal(t, model.Version08, version)
	config.Version = "2.0"
	_, err = config.ModelVersion()
	assert.ErrorIs(t, err, errors.NotValid)
}

func TestConfig_Validate(t *testing.T) {
	config := GetDefaultConfig()
	assert.NoError(t, config.Validate())
	for _, url := range []string{"file:///tmp/models", "s3://bucket", "gs://bucket/a/b", "azblob://container"} {
		config.Storage.URL = url
		assert.NoError(t, config.Validate(), url)
	}
	for _, url := range []string{"", "s3://", "http://host/dir", "models"} {
		config.Storage.URL = url
		assert.ErrorIs(t, config.Validate(), errors.NotValid, url)
	}
}
