package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"foodgram/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutDelete(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "http://localhost:8000/media/")
	ctx := context.Background()

	url, err := store.Put(ctx, "recipes/ab/abc.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/media/recipes/ab/abc.jpg", url)

	data, err := os.ReadFile(filepath.Join(root, "recipes", "ab", "abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	require.NoError(t, store.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(root, "recipes", "ab", "abc.jpg"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, url), "deleting twice is fine")
	assert.NoError(t, store.Delete(ctx, "https://elsewhere.example/x.jpg"))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "/media")
	_, err := store.Put(context.Background(), "../escape.jpg", []byte("x"), "image/jpeg")
	assert.Error(t, err)
	assert.NoError(t, store.Delete(context.Background(), "/media/../etc/passwd"))
}

type fakeS3 struct {
	puts    map[string][]byte
	deleted []string
	failPut bool
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut {
		return nil, errors.New("access denied")
	}
	body, _ := io.ReadAll(in.Body)
	f.puts[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_PutDelete(t *testing.T) {
	fake := &fakeS3{puts: map[string][]byte{}}
	store := newS3Store(fake, S3Config{Bucket: "media", Region: "eu-west-1", PublicURL: "https://cdn.example.com/"})
	ctx := context.Background()

	url, err := store.Put(ctx, "avatars/x.jpg", []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/x.jpg", url)
	assert.Equal(t, []byte("img"), fake.puts["avatars/x.jpg"])

	require.NoError(t, store.Delete(ctx, url))
	require.NoError(t, store.Delete(ctx, "/media/local.jpg"))
	assert.Equal(t, []string{"avatars/x.jpg"}, fake.deleted)

	fake.failPut = true
	_, err = store.Put(ctx, "avatars/y.jpg", []byte("img"), "image/jpeg")
	assert.Error(t, err)
}

func TestS3Store_DefaultPublicURL(t *testing.T) {
	awsStore := newS3Store(&fakeS3{}, S3Config{Bucket: "b", Region: "us-east-1"})
	assert.Equal(t, "https://b.s3.us-east-1.amazonaws.com", awsStore.publicURL)

	minio := newS3Store(&fakeS3{}, S3Config{Bucket: "b", Endpoint: "http://minio:9000/"})
	assert.Equal(t, "http://minio:9000/b", minio.publicURL)
}

func TestNew(t *testing.T) {
	store, err := New(context.Background(), &config.Config{MediaBackend: "local", MediaRoot: t.TempDir(), PublicBaseURL: "http://api", MediaURL: "/media"})
	require.NoError(t, err)
	assert.Equal(t, "local", store.Backend())

	_, err = New(context.Background(), &config.Config{MediaBackend: "ftp"})
	assert.Error(t, err)

	_, err = New(context.Background(), &config.Config{MediaBackend: "s3"})
	assert.Error(t, err, "bucket is required")
}
