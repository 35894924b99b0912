package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	appConfig "github.com/tramites-digitales/tramites-api/config"
)

// s3KeyPrefix namespaces document objects within the bucket.
const s3KeyPrefix = "documents/"

// S3DocumentStore implements DocumentStore on top of an S3 bucket, for
// deployments without a persistent local disk.
type S3DocumentStore struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewS3DocumentStore creates the S3-backed document store from the
// application configuration.
func NewS3DocumentStore(cfg *appConfig.Config, logger *zap.Logger) (*S3DocumentStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3DocumentStore{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.AWSS3Bucket,
		logger: logger.With(zap.String("service", "documents_s3")),
	}, nil
}

// Save validates and uploads a document, returning the generated name.
func (s *S3DocumentStore) Save(fileHeader *multipart.FileHeader) (string, error) {
	if !allowedDocument(fileHeader.Filename) {
		return "", ErrNotPDF
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			s.logger.Warn("Failed to close uploaded file", zap.Error(closeErr))
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}

	name := storedDocumentName(fileHeader.Filename)

	_, err = s.client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3KeyPrefix + name),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(documentContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	s.logger.Info("Document stored in S3",
		zap.String("name", name),
		zap.Int64("size", fileHeader.Size))

	return name, nil
}

// Open fetches a stored document from the bucket.
func (s *S3DocumentStore) Open(name string) (*Document, error) {
	if !validDocumentName(name) {
		return nil, ErrDocumentNotFound
	}

	out, err := s.client.GetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3KeyPrefix + name),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to fetch document from S3: %w", err)
	}

	return &Document{
		Reader:      out.Body,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: documentContentType,
	}, nil
}
