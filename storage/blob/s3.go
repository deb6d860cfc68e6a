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

package blob

import (
	"context"
	"io"
	"path"

	"github.com/gorse-io/statmodel/base/log"
	"github.com/gorse-io/statmodel/config"
	"github.com/juju/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type S3 struct {
	*minio.Client
	bucket string
	prefix string
}

func NewS3(cfg config.S3Config, bucket, prefix string) (*S3, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &S3{
		Client: minioClient,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Open a file in S3 for reading. This function returns an io.Reader that can be used to read the file's content.
func (s *S3) Open(name string) (io.ReadCloser, error) {
	object, err := s.Client.GetObject(context.Background(), s.bucket, path.Join(s.prefix, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Trace(err)
	}
	// GetObject is lazy, stat to surface missing keys here
	if _, err = object.Stat(); err != nil {
		_ = object.Close()
		return nil, s3Error(err, name)
	}
	return object, nil
}

// Create a new file in S3 for writing. The upload streams while data is written.
func (s *S3) Create(name string) (io.WriteCloser, <-chan error, error) {
	fullPath := path.Join(s.prefix, name)
	w, done := upload(func(r io.Reader) error {
		_, err := s.Client.PutObject(context.Background(), s.bucket, fullPath, r, -1, minio.PutObjectOptions{})
		if err != nil {
			log.Logger().Error("failed to upload file to S3", zap.String("file", fullPath), zap.Error(err))
		}
		return err
	})
	return w, done, nil
}

func (s *S3) List() ([]string, error) {
	var names []string
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}
	for object := range s.Client.ListObjects(context.Background(), s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, errors.Trace(object.Err)
		}
		if name := trimPrefix(object.Key, s.prefix); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Remove deletes a file. RemoveObject succeeds on missing keys, so existence is checked first.
func (s *S3) Remove(name string) error {
	fullPath := path.Join(s.prefix, name)
	if _, err := s.Client.StatObject(context.Background(), s.bucket, fullPath, minio.StatObjectOptions{}); err != nil {
		return s3Error(err, name)
	}
	if err := s.Client.RemoveObject(context.Background(), s.bucket, fullPath, minio.RemoveObjectOptions{}); err != nil {
		log.Logger().Error("failed to remove file from S3", zap.String("file", fullPath), zap.Error(err))
		return errors.Trace(err)
	}
	return nil
}

func s3Error(err error, name string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errors.NewNotFound(err, name)
	}
	return errors.Trace(err)
}
