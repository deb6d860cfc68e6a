// Copyright 2022 gorse Project Authors
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

package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet)
	assert.NoError(t, flagSet.Parse(args))
	return flagSet
}

func TestSetLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statmodel.log")
	assert.NoError(t, SetLogger(newFlagSet(t, "--log-path", path, "--log-format", "json"), false))
	Logger().Info("hello")
	_ = Logger().Sync()
	content, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"hello"`)
	assert.False(t, Logger().Core().Enabled(zapcore.DebugLevel))

	// debug logger without file
	assert.NoError(t, SetLogger(newFlagSet(t), true))
	assert.True(t, Logger().Core().Enabled(zapcore.DebugLevel))

	// explicit level wins over --debug
	assert.NoError(t, SetLogger(newFlagSet(t, "--log-level", "warn"), true))
	assert.False(t, Logger().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Logger().Core().Enabled(zapcore.WarnLevel))
}

func TestSetLogger_Invalid(t *testing.T) {
	err := SetLogger(newFlagSet(t, "--log-level", "loud"), false)
	assert.True(t, errors.Is(err, errors.NotValid))
	err = SetLogger(newFlagSet(t, "--log-format", "xml"), false)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "s3://xxxxx:xxxxxx@minio:9000/models", RedactURL("s3://admin:secret@minio:9000/models"))
	assert.Equal(t, "file:///tmp/models", RedactURL("file:///tmp/models"))
	assert.Equal(t, "/tmp/models", RedactURL("/tmp/models"))
}
