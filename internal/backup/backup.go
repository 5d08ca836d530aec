// Package backup uploads point-in-time copies of the task database to object
// storage and keeps only the newest few.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tasktracker/internal/storage"
)

const (
	filePrefix  = "tasktracker-"
	fileSuffix  = ".db"
	stampLayout = "20060102T150405Z"
)

// SnapshotFunc writes a consistent copy of the database to dest.
type SnapshotFunc func(ctx context.Context, dest string) error

type Config struct {
	Bucket    string
	KeyPrefix string
	// Retain is the number of snapshots kept after a successful upload.
	Retain int
	Logger *logrus.Logger
	Now    func() time.Time
}

type Runner struct {
	cfg      Config
	snapshot SnapshotFunc
	storage  storage.Service
}

func NewRunner(cfg Config, snapshot SnapshotFunc, store storage.Service) *Runner {
	if cfg.Retain <= 0 {
		cfg.Retain = 7
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &Runner{cfg: cfg, snapshot: snapshot, storage: store}
}

// Run snapshots the database, uploads it and prunes older snapshots. It
// returns the location of the uploaded object.
func (r *Runner) Run(ctx context.Context) (string, error) {
	dir, err := os.MkdirTemp("", "tasktracker-backup-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	name := filePrefix + r.cfg.Now().UTC().Format(stampLayout) + fileSuffix
	local := filepath.Join(dir, name)
	if err := r.snapshot(ctx, local); err != nil {
		return "", err
	}

	location, err := r.storage.UploadFile(ctx, local, storage.UploadOptions{
		Bucket:      r.cfg.Bucket,
		Key:         r.key(name),
		ContentType: "application/vnd.sqlite3",
	})
	if err != nil {
		return "", err
	}
	r.cfg.Logger.WithField("location", location).Info("database backup uploaded")

	if err := r.prune(ctx); err != nil {
		// the upload itself succeeded
		r.cfg.Logger.WithError(err).Warn("prune old backups")
	}
	return location, nil
}

func (r *Runner) key(name string) string {
	if r.cfg.KeyPrefix == "" {
		return name
	}
	return r.cfg.KeyPrefix + "/" + name
}

// prune deletes the oldest snapshots beyond the retention count. Snapshot
// names embed a sortable UTC stamp, so key order is age order.
func (r *Runner) prune(ctx context.Context) error {
	objects, err := r.storage.ListObjects(ctx, r.cfg.Bucket, r.key(filePrefix))
	if err != nil {
		return err
	}

	var keys []string
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, fileSuffix) {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) <= r.cfg.Retain {
		return nil
	}

	sort.Strings(keys)
	stale := keys[:len(keys)-r.cfg.Retain]
	if err := r.storage.DeleteObjects(ctx, r.cfg.Bucket, stale); err != nil {
		return err
	}
	r.cfg.Logger.WithField("count", len(stale)).Info("old backups pruned")
	return nil
}
