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
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorse-io/statmodel/base"
	"google.golang.org/protobuf/types/known/structpb"
	"gonum.org/v1/gonum/mat"
)

// KeyValue is an ordered entry of builder provenance.
type KeyValue struct {
	Key   string
	Value string
}

// BuilderInfo records one build step: the builder, when it ran, the data it consumed
// and the parameters it used.
type BuilderInfo struct {
	BuildID       string
	BuilderName   string
	BuildTime     time.Time
	DataInfo      []KeyValue
	ParameterInfo []KeyValue
}

func NewBuilderInfo(name string, dataInfo, parameterInfo []KeyValue) BuilderInfo {
	return BuilderInfo{
		BuildID:       uuid.NewString(),
		BuilderName:   name,
		BuildTime:     time.Now().UTC().Truncate(time.Second),
		DataInfo:      dataInfo,
		ParameterInfo: parameterInfo,
	}
}

// ModelInfo carries the scores of the training data (k×n) and the history of builders
// that produced a model.
type ModelInfo struct {
	Scores       *mat.Dense
	BuilderInfos []BuilderInfo
}

// NewModelInfo creates model info. scores may be nil or empty, meaning no scores.
func NewModelInfo(scores *mat.Dense, builderInfos ...BuilderInfo) ModelInfo {
	info := ModelInfo{BuilderInfos: builderInfos}
	if scores != nil && !scores.IsEmpty() {
		info.Scores = mat.DenseCopyOf(scores)
	}
	return info
}

// GetScoresMatrix returns a copy of the scores, or nil if none were computed.
func (info ModelInfo) GetScoresMatrix() *mat.Dense {
	if info.Scores == nil {
		return nil
	}
	return mat.DenseCopyOf(info.Scores)
}

func (info ModelInfo) GetBuilderInfoList() []BuilderInfo {
	return info.BuilderInfos
}

// Append returns a copy of info with builder appended to the history.
func (info ModelInfo) Append(builder BuilderInfo) ModelInfo {
	return ModelInfo{
		Scores:       info.GetScoresMatrix(),
		BuilderInfos: append(append([]BuilderInfo(nil), info.BuilderInfos...), builder),
	}
}

func (info ModelInfo) clone() ModelInfo {
	return ModelInfo{
		Scores:       info.GetScoresMatrix(),
		BuilderInfos: append([]BuilderInfo(nil), info.BuilderInfos...),
	}
}

func keyValuesToList(kvs []KeyValue) []any {
	list := make([]any, len(kvs))
	for i, kv := range kvs {
		list[i] = map[string]any{"key": kv.Key, "value": kv.Value}
	}
	return list
}

func keyValuesFromList(list *structpb.ListValue) []KeyValue {
	kvs := make([]KeyValue, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		fields := v.GetStructValue().GetFields()
		kvs = append(kvs, KeyValue{
			Key:   fields["key"].GetStringValue(),
			Value: fields["value"].GetStringValue(),
		})
	}
	return kvs
}

// builderInfosToStruct encodes the builder history as a protobuf struct.
func builderInfosToStruct(infos []BuilderInfo) (*structpb.Struct, error) {
	builders := make([]any, len(infos))
	for i, info := range infos {
		builders[i] = map[string]any{
			"id":         info.BuildID,
			"name":       info.BuilderName,
			"build_time": info.BuildTime.Format(time.RFC3339),
			"data":       keyValuesToList(info.DataInfo),
			"parameters": keyValuesToList(info.ParameterInfo),
		}
	}
	s, err := structpb.NewStruct(map[string]any{"builders": builders})
	if err != nil {
		return nil, base.InvalidModelf("failed to encode builder info: %v", err)
	}
	return s, nil
}

func builderInfosFromStruct(s *structpb.Struct) ([]BuilderInfo, error) {
	values := s.GetFields()["builders"].GetListValue().GetValues()
	infos := make([]BuilderInfo, 0, len(values))
	for _, v := range values {
		fields := v.GetStructValue().GetFields()
		info := BuilderInfo{
			BuildID:       fields["id"].GetStringValue(),
			BuilderName:   fields["name"].GetStringValue(),
			DataInfo:      keyValuesFromList(fields["data"].GetListValue()),
			ParameterInfo: keyValuesFromList(fields["parameters"].GetListValue()),
		}
		if raw := fields["build_time"].GetStringValue(); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, base.InvalidModelf("invalid build time %q", raw)
			}
			info.BuildTime = t
		}
		infos = append(infos, info)
	}
	return infos, nil
}
