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
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// StorageSchemes lists the URL schemes of supported model stores.
var StorageSchemes = []string{"file", "s3", "gs", "azblob"}

func validateStorageURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || !lo.Contains(StorageSchemes, u.Scheme) {
		return false
	}
	if u.Scheme == "file" {
		return u.Host != "" || u.Path != ""
	}
	return u.Host != ""
}

// Validate checks the configuration against its validation tags.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("storage_url", validateStorageURL); err != nil {
		return errors.Trace(err)
	}
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid configuration")
	}
	return nil
}
