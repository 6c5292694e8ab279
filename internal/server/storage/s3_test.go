package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/equipkeeper/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *sc.Config {
	return &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "equipkeeper",
	}
}

func restoreSeams(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	origDel := deleteObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
		deleteObject = origDel
	})
}

func TestNewS3Store_AppliesConfig(t *testing.T) {
	restoreSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		require.NotNil(t, c)
		return &s3.PresignClient{}
	}

	st, err := NewS3Store(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, "equipkeeper", st.bucket)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Store_LoadError(t *testing.T) {
	restoreSeams(t)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}

	_, err := NewS3Store(context.Background(), testConfig())
	require.ErrorContains(t, err, "load aws config: no creds")
}

func TestPresign(t *testing.T) {
	restoreSeams(t)

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "equipkeeper", *in.Bucket)
		return &v4.PresignedHTTPRequest{URL: "https://put/" + *in.Key}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if *in.Key == "bad" {
			return nil, errors.New("denied")
		}
		return &v4.PresignedHTTPRequest{URL: "https://get/" + *in.Key}, nil
	}

	st := &S3Store{bucket: "equipkeeper"}

	u, err := st.PresignPut(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "https://put/k1", u)

	u, err = st.PresignGet(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "https://get/k1", u)

	_, err = st.PresignGet(context.Background(), "bad")
	require.ErrorContains(t, err, "presign get bad: denied")
}

func TestDelete(t *testing.T) {
	restoreSeams(t)

	var deleted []string
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) error {
		if *in.Key == "broken" {
			return errors.New("503")
		}
		deleted = append(deleted, *in.Bucket+"/"+*in.Key)
		return nil
	}

	st := &S3Store{bucket: "b"}
	require.NoError(t, st.Delete(context.Background(), "k1"))
	require.Error(t, st.Delete(context.Background(), "broken"))
	assert.Equal(t, []string{"b/k1"}, deleted)
}

func TestNewStorageKey(t *testing.T) {
	k := NewStorageKey(time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(k, "images/2024/3/7/"), k)
	assert.NotEqual(t, k, NewStorageKey(time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)))
}
