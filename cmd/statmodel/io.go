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
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gorse-io/statmodel/base"
	"github.com/gorse-io/statmodel/dataset"
	"github.com/gorse-io/statmodel/model"
	"github.com/gorse-io/statmodel/model/builder"
	"github.com/gorse-io/statmodel/representer"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// parseConstraints reads one constraint per line: a point id followed by the value at
// that point.
func parseConstraints[D any](r io.Reader, sep string, rep representer.Representer[D]) ([]model.PointValue, error) {
	var (
		pointValues []model.PointValue
		errRet      error
	)
	domain := rep.Domain()
	err := base.ReadLines(base.NewLineScanner(r), sep, func(line int, fields []string) bool {
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return true
		}
		if len(fields) != rep.Dimensions()+1 {
			errRet = base.InvalidInputf("line %d: expect point id and %d values", line+1, rep.Dimensions())
			return false
		}
		ptId, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil || ptId < 0 || ptId >= len(domain) {
			errRet = base.InvalidInputf("line %d: invalid point id %q", line+1, fields[0])
			return false
		}
		value, err := dataset.ParseFloats(fields[1:])
		if err != nil {
			errRet = errors.Annotatef(err, "line %d", line+1)
			return false
		}
		pointValues = append(pointValues, model.PointValue{Point: domain[ptId], Value: value})
		return true
	})
	if err != nil {
		return nil, base.IOError(err, "failed to read constraints")
	}
	if errRet != nil {
		return nil, errRet
	}
	return pointValues, nil
}

// writeSample writes a sample as one CSV line prefixed by its name.
func writeSample(w io.Writer, name string, sample []float64) error {
	fields := make([]string, 0, len(sample)+1)
	fields = append(fields, name)
	for _, v := range sample {
		fields = append(fields, strconv.FormatFloat(v, 'g', -1, 64))
	}
	_, err := fmt.Fprintln(w, base.JoinLine(",", fields...))
	return errors.Trace(err)
}

func printCrossValidation(w io.Writer, result *builder.CrossValidationResult) error {
	table := tablewriter.NewWriter(w)
	table.Header("Fold", "Training", "Testing", "Components", "Reconstruction Error", "Mahalanobis Distance")
	for _, fold := range result.Folds {
		if err := table.Append([]string{
			strconv.Itoa(fold.Fold),
			strconv.Itoa(fold.NumTraining),
			strconv.Itoa(fold.NumTesting),
			strconv.Itoa(fold.NumComponents),
			fmt.Sprintf("%f", fold.ReconstructionError),
			fmt.Sprintf("%f", fold.MahalanobisDistance),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	if err := table.Append([]string{"Mean", "", "", "",
		fmt.Sprintf("%f", result.ReconstructionError),
		fmt.Sprintf("%f", result.MahalanobisDistance),
	}); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}

type builderSummary struct {
	Name       string            `yaml:"name"`
	ID         string            `yaml:"id"`
	Time       string            `yaml:"time"`
	Data       map[string]string `yaml:"data,omitempty"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

type modelSummary struct {
	Representer   string           `yaml:"representer"`
	Dimensions    int              `yaml:"dimensions"`
	Points        int              `yaml:"points"`
	Components    int              `yaml:"components"`
	NoiseVariance float64          `yaml:"noise_variance"`
	TotalVariance float64          `yaml:"total_variance"`
	Variance      []float64        `yaml:"variance"`
	HasScores     bool             `yaml:"scores"`
	Builders      []builderSummary `yaml:"builders"`
}

func summarize[D any](m *model.StatisticalModel[D]) modelSummary {
	rep := m.GetRepresenter()
	variance := m.GetPCAVarianceVector().RawVector().Data
	summary := modelSummary{
		Representer:   fmt.Sprintf("%s (%s)", rep.Name(), rep.Type()),
		Dimensions:    rep.Dimensions(),
		Points:        rep.NumberOfPoints(),
		Components:    m.GetNumberOfPrincipalComponents(),
		NoiseVariance: m.GetNoiseVariance(),
		TotalVariance: floats.Sum(variance),
		Variance:      append([]float64(nil), variance...),
		HasScores:     m.GetModelInfo().GetScoresMatrix() != nil,
	}
	for _, info := range m.GetModelInfo().GetBuilderInfoList() {
		summary.Builders = append(summary.Builders, builderSummary{
			Name:       info.BuilderName,
			ID:         info.BuildID,
			Time:       info.BuildTime.Format(time.RFC3339),
			Data:       keyValueMap(info.DataInfo),
			Parameters: keyValueMap(info.ParameterInfo),
		})
	}
	return summary
}

func keyValueMap(kvs []model.KeyValue) map[string]string {
	if len(kvs) == 0 {
		return nil
	}
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

// printInfo writes the summary of a model as a table or as YAML.
func printInfo[D any](w io.Writer, m *model.StatisticalModel[D], format string) error {
	summary := summarize(m)
	switch format {
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(summary); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(encoder.Close())
	case "table":
		table := tablewriter.NewWriter(w)
		table.Header("Property", "Value")
		rows := [][]string{
			{"Representer", summary.Representer},
			{"Dimensions", strconv.Itoa(summary.Dimensions)},
			{"Points", strconv.Itoa(summary.Points)},
			{"Components", strconv.Itoa(summary.Components)},
			{"Noise Variance", fmt.Sprintf("%g", summary.NoiseVariance)},
			{"Total Variance", fmt.Sprintf("%g", summary.TotalVariance)},
			{"Scores", strconv.FormatBool(summary.HasScores)},
		}
		for _, b := range summary.Builders {
			rows = append(rows, []string{"Builder", fmt.Sprintf("%s (%s)", b.Name, b.Time)})
		}
		if err := table.Bulk(rows); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(table.Render())
	default:
		return base.InvalidInputf("unknown format %q", format)
	}
}
