package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/storage"
)

type memoryStorage struct {
	objects   map[string][]byte
	uploadErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) UploadFile(_ context.Context, localPath string, opts storage.UploadOptions) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	m.objects[opts.Key] = data
	return storage.Location(opts.Bucket, opts.Key), nil
}

func (m *memoryStorage) ListObjects(_ context.Context, _ string, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memoryStorage) DeleteObjects(_ context.Context, _ string, keys []string) error {
	for _, key := range keys {
		delete(m.objects, key)
	}
	return nil
}

func (m *memoryStorage) keys() []string {
	var keys []string
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeSnapshot(_ context.Context, dest string) error {
	return os.WriteFile(dest, []byte("snapshot"), 0o600)
}

func TestRunUploadsSnapshot(t *testing.T) {
	store := newMemoryStorage()
	now := time.Date(2026, 10, 16, 12, 30, 0, 0, time.UTC)
	runner := NewRunner(Config{
		Bucket:    "bucket",
		KeyPrefix: "/backups/",
		Logger:    quietLogger(),
		Now:       func() time.Time { return now },
	}, writeSnapshot, store)

	location, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/backups/tasktracker-20261016T123000Z.db", location)
	assert.Equal(t, []byte("snapshot"), store.objects["backups/tasktracker-20261016T123000Z.db"])
}

func TestRunPrunesOldest(t *testing.T) {
	store := newMemoryStorage()
	store.objects["backups/unrelated.txt"] = nil
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	runner := NewRunner(Config{
		Bucket:    "bucket",
		KeyPrefix: "backups",
		Retain:    2,
		Logger:    quietLogger(),
		Now:       func() time.Time { return now },
	}, writeSnapshot, store)

	for i := 0; i < 4; i++ {
		_, err := runner.Run(context.Background())
		require.NoError(t, err)
		now = now.Add(24 * time.Hour)
	}

	assert.Equal(t, []string{
		"backups/tasktracker-20260103T000000Z.db",
		"backups/tasktracker-20260104T000000Z.db",
		"backups/unrelated.txt",
	}, store.keys())
}

func TestRunPropagatesFailures(t *testing.T) {
	store := newMemoryStorage()
	failing := func(context.Context, string) error { return errors.New("disk full") }

	_, err := NewRunner(Config{Bucket: "b", Logger: quietLogger()}, failing, store).Run(context.Background())
	assert.EqualError(t, err, "disk full")

	store.uploadErr = errors.New("unreachable")
	_, err = NewRunner(Config{Bucket: "b", Logger: quietLogger()}, writeSnapshot, store).Run(context.Background())
	assert.EqualError(t, err, "unreachable")
	assert.Empty(t, store.keys())
}
