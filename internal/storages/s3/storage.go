// Copyright 2023 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/greenmaskio/etlmodel/internal/storages"
)

const (
	awsErrorCodeNotFound  = "NotFound"
	awsErrorCodeNoSuchKey = "NoSuchKey"
)

type Storage struct {
	config   *Config
	service  s3iface.S3API
	uploader s3manageriface.UploaderAPI
	prefix   string
}

func NewStorage(ctx context.Context, cfg *Config, logLevel string) (*Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ses, err := session.NewSession()
	if err != nil {
		return nil, fmt.Errorf("cannot establish session: %w", err)
	}

	awsCfg := aws.NewConfig()
	awsCfg.WithS3ForcePathStyle(cfg.ForcePathStyle)
	awsCfg.WithS3UseAccelerate(cfg.UseAccelerate)
	request.WithRetryer(awsCfg, client.DefaultRetryer{NumMaxRetries: cfg.MaxRetries})

	if cfg.SecretAccessKey != "" && cfg.AccessKeyId != "" {
		awsCfg.WithCredentials(
			credentials.NewStaticCredentials(cfg.AccessKeyId, cfg.SecretAccessKey, cfg.SessionToken),
		)
	}

	lv := aws.LogOff
	if logLevel == zerolog.LevelDebugValue {
		lv = aws.LogDebug | aws.LogDebugWithRequestErrors | aws.LogDebugWithRequestRetries
	}
	awsCfg.WithLogger(logWrapper{})
	awsCfg.WithLogLevel(lv)

	if cfg.Endpoint != "" {
		awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.Region != "" {
		awsCfg.WithRegion(cfg.Region)
	}

	service := s3.New(ses, awsCfg)
	uploader := s3manager.NewUploaderWithClient(
		service, func(uploader *s3manager.Uploader) {
			uploader.PartSize = cfg.MaxPartSize
			if cfg.Concurrency > 0 {
				uploader.Concurrency = cfg.Concurrency
			}
		},
	)

	log.Debug().
		Str("Bucket", cfg.Bucket).
		Str("Prefix", cfg.Prefix).
		Msg("s3 storage bucket")

	return &Storage{
		prefix:   fixPrefix(cfg.Prefix),
		config:   cfg,
		service:  service,
		uploader: uploader,
	}, nil
}

func (s *Storage) GetCwd() string {
	return s.prefix
}

func (s *Storage) GetObject(ctx context.Context, filePath string) (io.ReadCloser, error) {
	obj, err := s.service.GetObjectWithContext(
		ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.config.Bucket),
			Key:    aws.String(path.Join(s.prefix, filePath)),
		},
	)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", filePath, storages.ErrFileNotFound)
		}
		return nil, fmt.Errorf("error getting object: %w", err)
	}
	return obj.Body, nil
}

func (s *Storage) PutObject(ctx context.Context, filePath string, body io.Reader) error {
	ui := &s3manager.UploadInput{
		Bucket:       aws.String(s.config.Bucket),
		Key:          aws.String(path.Join(s.prefix, filePath)),
		Body:         body,
		StorageClass: aws.String(s.config.StorageClass),
	}
	if _, err := s.uploader.UploadWithContext(ctx, ui); err != nil {
		return fmt.Errorf("s3 object uploading error: %w", err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, filePaths ...string) error {
	if len(filePaths) == 0 {
		return nil
	}
	objs := make([]*s3.ObjectIdentifier, len(filePaths))
	for idx, fp := range filePaths {
		objs[idx] = &s3.ObjectIdentifier{
			Key: aws.String(path.Join(s.prefix, fp)),
		}
	}
	input := &s3.DeleteObjectsInput{
		Bucket: aws.String(s.config.Bucket),
		Delete: &s3.Delete{
			Objects: objs,
		},
	}
	if _, err := s.service.DeleteObjectsWithContext(ctx, input); err != nil {
		return fmt.Errorf("error deleting objects: %w", err)
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, fileName string) (bool, error) {
	hoi := &s3.HeadObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(path.Join(s.prefix, fileName)),
	}
	if _, err := s.service.HeadObjectWithContext(ctx, hoi); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("error getting object info: %w", err)
	}
	return true, nil
}

func (s *Storage) SubStorage(subPath string, relative bool) storages.Storager {
	prefix := subPath
	if relative {
		prefix = path.Join(s.prefix, prefix)
	}
	return &Storage{
		config:   s.config,
		service:  s.service,
		uploader: s.uploader,
		prefix:   fixPrefix(prefix),
	}
}

func isNotFound(err error) bool {
	var awsErr awserr.Error
	return errors.As(err, &awsErr) &&
		(awsErr.Code() == awsErrorCodeNotFound || awsErr.Code() == awsErrorCodeNoSuchKey)
}

func fixPrefix(prefix string) string {
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix = prefix + "/"
	}
	return prefix
}

type logWrapper struct{}

func (lw logWrapper) Log(objs ...interface{}) {
	event := log.Debug()
	for idx, o := range objs {
		event.Any(fmt.Sprintf("%d", idx), o)
	}
	event.Msg("s3 storage logging")
}
