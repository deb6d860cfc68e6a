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
	"os"
	"path"

	"cloud.google.com/go/storage"
	"github.com/gorse-io/statmodel/config"
	"github.com/juju/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCS(cfg config.GCSConfig, bucket, prefix string) (*GCS, error) {
	var opts []option.ClientOption
	if endpoint := os.Getenv("GCS_EMULATOR_ENDPOINT"); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
		opts = append(opts, option.WithoutAuthentication())
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &GCS{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (g *GCS) Open(name string) (io.ReadCloser, error) {
	r, err := g.client.Bucket(g.bucket).Object(path.Join(g.prefix, name)).NewReader(context.Background())
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, errors.NewNotFound(err, name)
	}
	return r, err
}

func (g *GCS) Create(name string) (io.WriteCloser, <-chan error, error) {
	wc := g.client.Bucket(g.bucket).Object(path.Join(g.prefix, name)).NewWriter(context.Background())
	done := make(chan error, 1)
	return &gcsWriter{wc, done}, done, nil
}

type gcsWriter struct {
	*storage.Writer
	done chan error
}

func (w *gcsWriter) Close() error {
	err := w.Writer.Close()
	w.done <- err
	close(w.done)
	return err
}

func (g *GCS) List() ([]string, error) {
	var names []string
	it := g.client.Bucket(g.bucket).Objects(context.Background(), &storage.Query{
		Prefix: g.prefix,
	})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Trace(err)
		}
		if name := trimPrefix(attrs.Name, g.prefix); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (g *GCS) Remove(name string) error {
	err := g.client.Bucket(g.bucket).Object(path.Join(g.prefix, name)).Delete(context.Background())
	if errors.Is(err, storage.ErrObjectNotExist) {
		return errors.NewNotFound(err, name)
	}
	return err
}
