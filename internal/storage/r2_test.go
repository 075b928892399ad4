package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	return &s3.PutObjectOutput{}, f.err
}

func TestUpload(t *testing.T) {
	putter := &fakePutter{}
	client := NewR2ClientWith(putter, "bakery", "https://cdn.example.com/")

	url, err := client.Upload(context.Background(), "backups/x.json", "application/json", bytes.NewBufferString(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/backups/x.json", url)
	assert.Equal(t, "bakery", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "backups/x.json", aws.ToString(putter.input.Key))
	assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))
	assert.Equal(t, `{"a":1}`, string(putter.body))
}

func TestUploadWithoutPublicURLReturnsKey(t *testing.T) {
	client := NewR2ClientWith(&fakePutter{}, "bakery", "")
	url, err := client.Upload(context.Background(), "k", "text/plain", bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, "k", url)
}

func TestUploadError(t *testing.T) {
	client := NewR2ClientWith(&fakePutter{err: errors.New("denied")}, "bakery", "")
	_, err := client.Upload(context.Background(), "k", "text/plain", bytes.NewReader(nil))
	assert.ErrorContains(t, err, "denied")
}

func TestNewR2ClientRequiresEndpoint(t *testing.T) {
	_, err := NewR2Client(context.Background(), R2Options{Bucket: "b"})
	assert.ErrorIs(t, err, ErrBackupDisabled)

	client, err := NewR2Client(context.Background(), R2Options{Endpoint: "http://localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestBackupKey(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "backups/bakery-20261019T063000Z.json", BackupKey(at))
}
