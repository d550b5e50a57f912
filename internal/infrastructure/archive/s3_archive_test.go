package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invorya-ledger/pkg/config"
)

type fakeUploader struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{Location: "s3://" + aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)}, nil
}

func TestPut_SubeAlBucket(t *testing.T) {
	up := &fakeUploader{}
	a := &S3Archive{uploader: up, bucket: "fiscal"}

	require.NoError(t, a.Put(context.Background(), "verifactu/co-1/2025/F-1.xml", []byte("<x/>"), "application/xml"))
	assert.Equal(t, "fiscal", aws.ToString(up.input.Bucket))
	assert.Equal(t, "verifactu/co-1/2025/F-1.xml", aws.ToString(up.input.Key))
	assert.Equal(t, "application/xml", aws.ToString(up.input.ContentType))
	assert.Equal(t, "<x/>", string(up.body))
}

func TestPut_PropagaError(t *testing.T) {
	a := &S3Archive{uploader: &fakeUploader{err: errors.New("denied")}, bucket: "fiscal"}
	err := a.Put(context.Background(), "k", nil, "application/xml")
	assert.ErrorContains(t, err, "denied")
}

func TestNewS3Archive_SinBucket(t *testing.T) {
	_, err := NewS3Archive(context.Background(), config.ArchiveConfig{Region: "eu-south-2"})
	assert.Error(t, err)
}
