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
	"io"
	"os"

	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/dataset"
	"github.com/gorse-io/statmodel/model"
	"github.com/gorse-io/statmodel/model/builder"
	"github.com/gorse-io/statmodel/representer"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var buildCommand = &cobra.Command{
	Use:   "build <data.csv> <model>",
	Short: "Build a PCA model from vectors in a CSV file",
	Long:  "Build a PCA model from vectors in a CSV file. Each line holds a dataset URI followed by the entries of its vector.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := loadData(args[0], cmd)
		if err != nil {
			log.Logger().Fatal("failed to load data", zap.String("path", args[0]), zap.Error(err))
		}
		params, noiseVariance, method, err := pcaSettings(cmd)
		if err != nil {
			log.Logger().Fatal("invalid flags", zap.Error(err))
		}
		scores, _ := cmd.Flags().GetBool("scores")
		m, err := builder.NewPCAModelBuilder[[]float64](params).BuildNewModel(manager.GetData(), noiseVariance, scores, method)
		if err != nil {
			log.Logger().Fatal("failed to build model", zap.Error(err))
		}
		saveModel(args[1], m)
	},
}

var cvCommand = &cobra.Command{
	Use:   "cv <data.csv>",
	Short: "Evaluate PCA models by cross validation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := loadData(args[0], cmd)
		if err != nil {
			log.Logger().Fatal("failed to load data", zap.String("path", args[0]), zap.Error(err))
		}
		params, noiseVariance, method, err := pcaSettings(cmd)
		if err != nil {
			log.Logger().Fatal("invalid flags", zap.Error(err))
		}
		var folds []dataset.CrossValidationFold[[]float64]
		if loo, _ := cmd.Flags().GetBool("leave-one-out"); loo {
			folds = manager.GetLeaveOneOutCrossValidationFolds()
		} else {
			nFolds := conf.Model.Folds
			if cmd.Flags().Changed("folds") {
				nFolds, _ = cmd.Flags().GetInt("folds")
			}
			shuffle, _ := cmd.Flags().GetBool("shuffle")
			if folds, err = manager.GetCrossValidationFolds(nFolds, shuffle); err != nil {
				log.Logger().Fatal("failed to split folds", zap.Error(err))
			}
		}
		result, err := builder.CrossValidate(folds, builder.NewPCAModelBuilder[[]float64](params), noiseVariance, method, conf.Model.Jobs)
		if err != nil {
			log.Logger().Fatal("failed to cross validate", zap.Error(err))
		}
		if err = printCrossValidation(os.Stdout, result); err != nil {
			log.Logger().Fatal("failed to print result", zap.Error(err))
		}
	},
}

var gpCommand = &cobra.Command{
	Use:   "gp <model>",
	Short: "Build a Gaussian process model with a Gaussian kernel over a vector domain",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		length, _ := cmd.Flags().GetInt("length")
		sigma, _ := cmd.Flags().GetFloat64("sigma")
		scale, _ := cmd.Flags().GetFloat64("scale")
		components, _ := cmd.Flags().GetInt("components")
		m, err := buildGaussianProcess(length, sigma, scale, components, conf.Model.Params())
		if err != nil {
			log.Logger().Fatal("failed to build model", zap.Error(err))
		}
		saveModel(args[0], m)
	},
}

func init() {
	for _, command := range []*cobra.Command{buildCommand, cvCommand} {
		command.Flags().Float64("noise", 0, "variance of the isotropic noise")
		command.Flags().Int("components", 0, "maximum number of components (0 keeps all)")
		command.Flags().Float64("variance", 1, "fraction of the total variance to keep")
		command.Flags().String("method", "svd", "decomposition method: svd or eigen")
		command.Flags().String("sep", ",", "separator of the CSV file")
	}
	buildCommand.Flags().Bool("scores", true, "store the coefficients of the datasets in the model")
	cvCommand.Flags().Int("folds", 5, "number of folds")
	cvCommand.Flags().Bool("shuffle", false, "shuffle datasets before splitting")
	cvCommand.Flags().Bool("leave-one-out", false, "leave one dataset out per fold")
	gpCommand.Flags().Int("length", 100, "length of the vectors")
	gpCommand.Flags().Float64("sigma", 10, "width of the Gaussian kernel")
	gpCommand.Flags().Float64("scale", 1, "scale of the kernel")
	gpCommand.Flags().Int("components", 10, "number of components")
	rootCommand.AddCommand(buildCommand, cvCommand, gpCommand)
}

// loadData reads a CSV file of vectors with a progress bar.
func loadData(path string, cmd *cobra.Command) (*dataset.DataManager[[]float64], error) {
	file, size, err := openFile(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	sep, _ := cmd.Flags().GetString("sep")
	var r io.Reader = file
	if size > 0 {
		bar := progressbar.DefaultBytes(size, "load data")
		reader := progressbar.NewReader(file, bar)
		defer func() { _ = bar.Finish() }()
		r = &reader
	}
	var opts []dataset.Option
	if conf.Model.Seed != 0 {
		opts = append(opts, dataset.WithSeed(conf.Model.Seed))
	}
	manager, err := dataset.LoadCSV(r, sep, opts...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load data", zap.String("path", path), zap.Int("n_samples", manager.GetNumberOfSamples()))
	return manager, nil
}

// pcaSettings merges PCA flags into the configured defaults.
func pcaSettings(cmd *cobra.Command) (model.Params, float64, builder.Method, error) {
	params := conf.Model.Params()
	noiseVariance := conf.Model.NoiseVariance
	methodName := conf.Model.Method
	if cmd.Flags().Changed("noise") {
		noiseVariance, _ = cmd.Flags().GetFloat64("noise")
	}
	if cmd.Flags().Changed("components") {
		components, _ := cmd.Flags().GetInt("components")
		params[model.NumComponents] = components
	}
	if cmd.Flags().Changed("variance") {
		variance, _ := cmd.Flags().GetFloat64("variance")
		params[model.TotalVariance] = variance
	}
	if cmd.Flags().Changed("method") {
		methodName, _ = cmd.Flags().GetString("method")
	}
	method, err := builder.ParseMethod(methodName)
	if err != nil {
		return nil, 0, 0, errors.Trace(err)
	}
	return params, noiseVariance, method, nil
}

// buildGaussianProcess builds a zero mean model over vectors of the given length whose
// covariance is scale·exp(−|i−j|²/σ²).
func buildGaussianProcess(length int, sigma, scale float64, components int, params model.Params) (*model.StatisticalModel[[]float64], error) {
	rep, err := representer.NewVector(length)
	if err != nil {
		return nil, errors.Trace(err)
	}
	gaussian, err := builder.NewGaussianKernel(sigma)
	if err != nil {
		return nil, errors.Trace(err)
	}
	kernel, err := builder.NewUncorrelatedMatrixValuedKernel(gaussian, 1)
	if err != nil {
		return nil, errors.Trace(err)
	}
	scaled, err := builder.NewScaledKernel(kernel, scale)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return builder.NewLowRankGPModelBuilder[[]float64](rep, params).BuildNewZeroMeanModel(scaled, components)
}

func saveModel(name string, m *model.StatisticalModel[[]float64]) {
	models, err := openModelStore()
	if err != nil {
		log.Logger().Fatal("failed to open model store", zap.Error(err))
	}
	if err = models.Save(name, m); err != nil {
		log.Logger().Fatal("failed to save model", zap.String("name", name), zap.Error(err))
	}
}
