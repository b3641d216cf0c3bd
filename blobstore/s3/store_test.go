package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/fpdb/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) UploadPart(ctx context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.UploadPartOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.CreateMultipartUploadOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.CompleteMultipartUploadOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.AbortMultipartUploadOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) HeadObject(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.HeadObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.GetObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockClient) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.DeleteObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestStore_Open(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient, "test-bucket", WithPrefix("prefix"))

	t.Run("NotFound", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "test-bucket" && *input.Key == "prefix/missing.fpdb"
		})).Return(nil, &types.NotFound{}).Once()

		_, err := store.Open(context.Background(), "missing.fpdb")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		mockClient.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Key == "prefix/db.fpdb"
		})).Return(&s3.HeadObjectOutput{ContentLength: aws.Int64(10)}, nil).Once()

		b, err := store.Open(context.Background(), "db.fpdb")
		require.NoError(t, err)
		assert.Equal(t, int64(10), b.Size())
	})

	mockClient.AssertExpectations(t)
}

func TestBlob_ReadAt(t *testing.T) {
	mockClient := new(MockClient)
	b := &blob{ctx: context.Background(), client: mockClient, bucket: "b", key: "k", size: 10}

	mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Range == "bytes=0-4"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("hello"))}, nil).Once()

	buf := make([]byte, 5)
	n, err := b.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	t.Run("short tail", func(t *testing.T) {
		mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Range == "bytes=8-9"
		})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("ld"))}, nil).Once()

		buf := make([]byte, 5)
		n, err := b.ReadAt(buf, 8)
		assert.Equal(t, 2, n)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, "ld", string(buf[:n]))
	})

	t.Run("past end", func(t *testing.T) {
		_, err := b.ReadAt(make([]byte, 1), 10)
		assert.ErrorIs(t, err, io.EOF)
	})

	mockClient.AssertExpectations(t)
}

func TestStore_Delete(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient, "test-bucket", WithPrefix("prefix"))

	mockClient.On("DeleteObject", mock.Anything, mock.MatchedBy(func(input *s3.DeleteObjectInput) bool {
		return *input.Bucket == "test-bucket" && *input.Key == "prefix/del"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()
	mockClient.On("DeleteObject", mock.Anything, mock.MatchedBy(func(input *s3.DeleteObjectInput) bool {
		return *input.Key == "prefix/gone"
	})).Return(nil, &types.NoSuchKey{}).Once()

	require.NoError(t, store.Delete(context.Background(), "del"))
	require.NoError(t, store.Delete(context.Background(), "gone"))
	mockClient.AssertExpectations(t)
}

func TestStore_Create(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient, "test-bucket", WithPrefix("prefix"))

	var uploaded string
	mockClient.On("PutObject", mock.Anything, mock.MatchedBy(func(input *s3.PutObjectInput) bool {
		return *input.Bucket == "test-bucket" && *input.Key == "prefix/new.fpdb"
	})).Run(func(args mock.Arguments) {
		input := args.Get(1).(*s3.PutObjectInput)
		data, _ := io.ReadAll(input.Body)
		uploaded = string(data)
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	w, err := store.Create(context.Background(), "new.fpdb")
	require.NoError(t, err)
	_, err = w.Write([]byte("container"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Close(), blobstore.ErrClosed)
	assert.NoError(t, w.Abort())

	assert.Equal(t, "container", uploaded)
	mockClient.AssertExpectations(t)
}

func TestStore_CreateAbort(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient, "test-bucket")

	mockClient.On("PutObject", mock.Anything, mock.Anything).Return(nil, context.Canceled).Maybe()

	w, err := store.Create(context.Background(), "aborted.fpdb")
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	_, err = w.Write([]byte("late"))
	assert.Error(t, err)
}
