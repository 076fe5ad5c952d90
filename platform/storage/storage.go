package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"

	"go_branch_chat/config"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/utils"
)

type Service struct {
	Client       *minio.Client
	Config       *minio.Options
	Bucket       string
	StorageType  string
	KeyGenerator *utils.TranscriptKeyGenerator
}

func InitStorageService(cfg *config.Config) (*Service, error) {
	var minioClient *minio.Client
	var err error

	// local vs s3
	switch cfg.StorageType {
	case "minio":
		minioClient, err = utils.CreateMinIOClient(cfg)
	case "s3":
		minioClient, err = utils.CreateS3Client(cfg)
	default:
		err = fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail InitStorageService")
		return nil, err
	}
	ss := &Service{
		Client:       minioClient,
		Config:       &minio.Options{Region: cfg.BucketRegion},
		Bucket:       cfg.BucketName,
		StorageType:  cfg.StorageType,
		KeyGenerator: utils.NewTranscriptKeyGenerator("transcripts"),
	}
	if err := ss.EnsureBucketExists(context.Background()); err != nil {
		logging.Logger.Error().Err(err).Msg("fail InitStorageService")
		return nil, err
	}
	logging.Logger.Info().
		Str("type", cfg.StorageType).
		Str("bucket", cfg.BucketName).
		Str("region", cfg.BucketRegion).
		Msg("Storage service initialized")

	return ss, nil
}

func (ss *Service) EnsureBucketExists(ctx context.Context) error {
	exists, err := ss.Client.BucketExists(ctx, ss.Bucket)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail EnsureBucketExists")
		return err
	}
	if exists {
		logging.Logger.Debug().Str("bucket", ss.Bucket).Msg("Bucket already exists")
		return nil
	}
	err = ss.Client.MakeBucket(ctx, ss.Bucket, minio.MakeBucketOptions{
		Region: ss.Config.Region,
	})
	if err != nil {
		if ss.StorageType == "s3" {
			logging.Logger.Warn().Err(err).Str("bucket", ss.Bucket).
				Msg("Could not create S3 bucket (might exist or no permission)")
			return nil
		}
		logging.Logger.Error().Err(err).Msg("fail EnsureBucketExists")
		return err
	}
	logging.Logger.Info().Str("bucket", ss.Bucket).Msg("Bucket created successfully")
	return nil
}

// PutTranscript stores a markdown transcript under a fresh key and returns
// that key.
func (ss *Service) PutTranscript(ctx context.Context, title string, body []byte) (string, error) {
	key := ss.KeyGenerator.Key(title)
	_, err := ss.Client.PutObject(ctx, ss.Bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "text/markdown; charset=utf-8"})
	if err != nil {
		logging.Logger.Error().Err(err).Str("key", key).Msg("fail PutTranscript")
		return "", err
	}
	return key, nil
}

func (ss *Service) GeneratePresignedGetDownload(ctx context.Context, fileKey string, expiration time.Time) (string, error) {
	duration := time.Until(expiration)
	if duration <= 0 {
		logging.Logger.Error().Time("expiration", expiration).Msg("fail GeneratePresignedGetDownload, expiration error")
		return "", fmt.Errorf("expiration error")
	}
	presignedURL, err := ss.Client.PresignedGetObject(ctx, ss.Bucket, fileKey, duration, nil)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail GeneratePresignedGetDownload")
		return "", err
	}
	return presignedURL.String(), nil
}

func (ss *Service) FileExists(ctx context.Context, fileKey string) (bool, error) {
	_, err := ss.Client.StatObject(ctx, ss.Bucket, fileKey, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
