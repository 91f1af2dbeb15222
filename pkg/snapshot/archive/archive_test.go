package archive

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUploader(t *testing.T) *Uploader {
	t.Helper()
	u, err := New(context.Background(), Config{
		Bucket:          "test-bucket",
		Prefix:          "snapshots/",
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	require.NoError(t, err)
	return u
}

func TestNewResolvesStaticCredentialsWithoutNetworkAccess(t *testing.T) {
	testUploader(t)
}

func TestUploadMissingLocalFileReturnsErrorBeforeAnyNetworkCall(t *testing.T) {
	u := testUploader(t)

	err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "does-not-exist.snap"))
	assert.Error(t, err)
}
