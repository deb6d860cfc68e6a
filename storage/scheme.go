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

package storage

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/config"
	"github.com/gorse-io/statmodel/storage/blob"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	FilePrefix  = "file://"
	S3Prefix    = "s3://"
	GCSPrefix   = "gs://"
	AzurePrefix = "azblob://"
)

// OpenBlobStore opens the blob store located by rawURL. Credentials of object storage
// services come from cfg.
func OpenBlobStore(rawURL string, cfg config.StorageConfig) (blob.Store, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Trace(err)
	}
	bucket, prefix := parsed.Host, strings.Trim(parsed.Path, "/")
	log.Logger().Debug("open blob store", zap.String("url", log.RedactURL(rawURL)))
	switch {
	case strings.HasPrefix(rawURL, FilePrefix):
		// file://relative/dir or file:///absolute/dir
		dir := filepath.FromSlash(parsed.Host + parsed.Path)
		if dir == "" {
			return nil, errors.NotValidf("empty directory in %s", rawURL)
		}
		return blob.NewPOSIX(dir), nil
	case strings.HasPrefix(rawURL, S3Prefix):
		if bucket == "" {
			return nil, errors.NotValidf("empty bucket in %s", log.RedactURL(rawURL))
		}
		return blob.NewS3(cfg.S3, bucket, prefix)
	case strings.HasPrefix(rawURL, GCSPrefix):
		if bucket == "" {
			return nil, errors.NotValidf("empty bucket in %s", log.RedactURL(rawURL))
		}
		return blob.NewGCS(cfg.GCS, bucket, prefix)
	case strings.HasPrefix(rawURL, AzurePrefix):
		if bucket == "" {
			return nil, errors.NotValidf("empty container in %s", log.RedactURL(rawURL))
		}
		return blob.NewAzureBlob(cfg.Azure, bucket, prefix)
	}
	return nil, errors.NotSupportedf("blob store %s", log.RedactURL(rawURL))
}
