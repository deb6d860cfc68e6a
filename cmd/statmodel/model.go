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
	"bufio"
	"fmt"
	"os"

	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/model"
	"github.com/gorse-io/statmodel/model/builder"
	"github.com/gorse-io/statmodel/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var posteriorCommand = &cobra.Command{
	Use:   "posterior <model> <constraints.csv> <output>",
	Short: "Condition a model on point constraints",
	Long:  "Condition a model on point constraints. Each line of the constraint file holds a point id followed by the value at that point.",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		prior := loadModel(cmd, args[0])
		file, _, err := openFile(args[1])
		if err != nil {
			log.Logger().Fatal("failed to open constraints", zap.String("path", args[1]), zap.Error(err))
		}
		defer file.Close()
		sep, _ := cmd.Flags().GetString("sep")
		pointValues, err := parseConstraints(file, sep, prior.GetRepresenter())
		if err != nil {
			log.Logger().Fatal("failed to parse constraints", zap.String("path", args[1]), zap.Error(err))
		}
		noise, _ := cmd.Flags().GetFloat64("noise")
		scores, _ := cmd.Flags().GetBool("scores")
		posterior, err := builder.NewPosteriorModelBuilder[[]float64](conf.Model.Params()).
			BuildNewModelFromModelWithUniformNoise(prior, pointValues, noise, scores)
		if err != nil {
			log.Logger().Fatal("failed to build posterior model", zap.Error(err))
		}
		log.Logger().Info("build posterior model", zap.Int("n_constraints", len(pointValues)),
			zap.Int("n_components", posterior.GetNumberOfPrincipalComponents()))
		saveModel(args[2], posterior)
	},
}

var reduceCommand = &cobra.Command{
	Use:   "reduce <model> <output>",
	Short: "Keep the leading components of a model",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		m := loadModel(cmd, args[0])
		b := builder.NewReducedVarianceModelBuilder[[]float64](conf.Model.Params())
		var (
			reduced *model.StatisticalModel[[]float64]
			err     error
		)
		if cmd.Flags().Changed("components") {
			components, _ := cmd.Flags().GetInt("components")
			reduced, err = b.BuildNewModelWithLeadingComponents(m, components)
		} else {
			variance, _ := cmd.Flags().GetFloat64("variance")
			reduced, err = b.BuildNewModelWithVariance(m, variance)
		}
		if err != nil {
			log.Logger().Fatal("failed to reduce model", zap.Error(err))
		}
		log.Logger().Info("reduce model",
			zap.Int("from", m.GetNumberOfPrincipalComponents()),
			zap.Int("to", reduced.GetNumberOfPrincipalComponents()))
		saveModel(args[1], reduced)
	},
}

var sampleCommand = &cobra.Command{
	Use:   "sample <model>",
	Short: "Draw samples from a model as CSV lines",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m := loadModel(cmd, args[0])
		n, _ := cmd.Flags().GetInt("number")
		noise, _ := cmd.Flags().GetBool("noise")
		mean, _ := cmd.Flags().GetBool("mean")
		w := bufio.NewWriter(os.Stdout)
		defer func() {
			if err := w.Flush(); err != nil {
				log.Logger().Fatal("failed to write samples", zap.Error(err))
			}
		}()
		if mean {
			sample, err := m.DrawMean()
			if err != nil {
				log.Logger().Fatal("failed to draw mean", zap.Error(err))
			}
			if err = writeSample(w, "mean", sample); err != nil {
				log.Logger().Fatal("failed to write sample", zap.Error(err))
			}
			return
		}
		bar := progressbar.Default(int64(n), "draw samples")
		for i := 0; i < n; i++ {
			sample, err := m.DrawRandomSample(noise)
			if err != nil {
				log.Logger().Fatal("failed to draw sample", zap.Error(err))
			}
			if err = writeSample(w, fmt.Sprintf("sample_%d", i), sample); err != nil {
				log.Logger().Fatal("failed to write sample", zap.Error(err))
			}
			_ = bar.Add(1)
		}
	},
}

var infoCommand = &cobra.Command{
	Use:   "info <model>",
	Short: "Show the summary of a model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m := loadModel(cmd, args[0])
		format, _ := cmd.Flags().GetString("format")
		if err := printInfo(os.Stdout, m, format); err != nil {
			log.Logger().Fatal("failed to print model info", zap.Error(err))
		}
	},
}

var listCommand = &cobra.Command{
	Use:   "list",
	Short: "List models in the model store",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		models, err := openModelStore()
		if err != nil {
			log.Logger().Fatal("failed to open model store", zap.Error(err))
		}
		names, err := models.List()
		if err != nil {
			log.Logger().Fatal("failed to list models", zap.Error(err))
		}
		for _, name := range names {
			fmt.Println(name)
		}
	},
}

var removeCommand = &cobra.Command{
	Use:   "remove <model>...",
	Short: "Remove models from the model store",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		models, err := openModelStore()
		if err != nil {
			log.Logger().Fatal("failed to open model store", zap.Error(err))
		}
		for _, name := range args {
			if err = models.Remove(name); err != nil {
				log.Logger().Fatal("failed to remove model", zap.String("name", name), zap.Error(err))
			}
			log.Logger().Info("remove model", zap.String("name", name))
		}
	},
}

func init() {
	posteriorCommand.Flags().Float64("noise", 0, "variance of the noise at the constrained points")
	posteriorCommand.Flags().Bool("scores", false, "project the scores of the prior onto the posterior")
	posteriorCommand.Flags().String("sep", ",", "separator of the constraint file")
	reduceCommand.Flags().Int("components", 0, "number of leading components to keep")
	reduceCommand.Flags().Float64("variance", 1, "fraction of the total variance to keep")
	reduceCommand.MarkFlagsMutuallyExclusive("components", "variance")
	sampleCommand.Flags().IntP("number", "n", 1, "number of samples")
	sampleCommand.Flags().Bool("noise", false, "add isotropic noise to samples")
	sampleCommand.Flags().Bool("mean", false, "write the mean instead of random samples")
	for _, command := range []*cobra.Command{posteriorCommand, reduceCommand, sampleCommand, infoCommand} {
		command.Flags().Int("max-components", 0, "load at most this many components (0 loads all)")
	}
	infoCommand.Flags().String("format", "table", "output format: table or yaml")
	rootCommand.AddCommand(posteriorCommand, reduceCommand, sampleCommand, infoCommand, listCommand, removeCommand)
}

// loadModel loads a model from the store, truncated to --max-components if the command
// has that flag.
func loadModel(cmd *cobra.Command, name string) *model.StatisticalModel[[]float64] {
	var opts []storage.Option
	if cmd.Flags().Lookup("max-components") != nil {
		maxComponents, _ := cmd.Flags().GetInt("max-components")
		opts = append(opts, storage.WithMaxComponents(maxComponents))
	}
	models, err := openModelStore(opts...)
	if err != nil {
		log.Logger().Fatal("failed to open model store", zap.Error(err))
	}
	m, err := models.Load(name)
	if err != nil {
		log.Logger().Fatal("failed to load model", zap.String("name", name), zap.Error(err))
	}
	return m
}
