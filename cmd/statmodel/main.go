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
package main

import (
	"fmt"
	"os"

	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/cmd/version"
	"github.com/gorse-io/statmodel/config"
	"github.com/gorse-io/statmodel/model"
	"github.com/gorse-io/statmodel/representer"
	"github.com/gorse-io/statmodel/storage"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var conf *config.Config

var rootCommand = &cobra.Command{
	Use:   "statmodel",
	Short: "Build, condition and sample low-rank Gaussian statistical models.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// setup logger
		debug, _ := cmd.Flags().GetBool("debug")
		if err := log.SetLogger(cmd.Flags(), debug); err != nil {
			log.Logger().Fatal("invalid log flags", zap.Error(err))
		}
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			log.CloseLogger()
		}

		// load config
		configPath, _ := cmd.Flags().GetString("config")
		var err error
		if conf, err = config.LoadConfig(configPath); err != nil {
			log.Logger().Fatal("failed to load config", zap.String("config", configPath), zap.Error(err))
		}
		if store, _ := cmd.Flags().GetString("store"); store != "" {
			conf.Storage.URL = store
			if err = conf.Validate(); err != nil {
				log.Logger().Fatal("invalid model store", zap.String("store", log.RedactURL(store)), zap.Error(err))
			}
		}
		log.Logger().Debug("load config", zap.String("config", configPath),
			zap.String("store", log.RedactURL(conf.Storage.URL)))
	},
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Print(version.BuildInfo())
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().BoolP("quiet", "q", false, "only log fatal errors")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().StringP("store", "s", "", "URL of the model store (overrides the configuration)")
	rootCommand.Flags().BoolP("version", "v", false, "statmodel version")
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}

// openModelStore opens the configured model store of vector models.
func openModelStore(opts ...storage.Option) (*storage.ModelStore[[]float64], error) {
	store, err := storage.OpenBlobStore(conf.Storage.URL, conf.Storage)
	if err != nil {
		return nil, errors.Trace(err)
	}
	version, err := conf.Model.ModelVersion()
	if err != nil {
		return nil, errors.Trace(err)
	}
	opts = append([]storage.Option{
		storage.WithVersion(version),
		storage.WithModelOptions(modelOptions()...),
	}, opts...)
	return storage.NewModelStore(store, newVectorRepresenter, opts...), nil
}

func newVectorRepresenter() representer.Representer[[]float64] {
	return new(representer.Vector)
}

func modelOptions() []model.Option {
	if conf.Model.Seed != 0 {
		return []model.Option{model.WithSeed(conf.Model.Seed)}
	}
	return nil
}

// openFile opens a local file, or stdin if path is "-".
func openFile(path string) (*os.File, int64, error) {
	if path == "-" {
		return os.Stdin, -1, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Trace(err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, errors.Trace(err)
	}
	return file, info.Size(), nil
}
