// Package backup periodically snapshots the database and ships the copy to
// object storage, keeping a bounded number of recent snapshots.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tasktracker/internal/storage"
)

const objectSuffix = ".db"

// SnapshotFunc writes a consistent copy of the database to dest.
type SnapshotFunc func(ctx context.Context, dest string) error

// Manager runs database backups on an interval.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	RunOnce(ctx context.Context) (string, error)
}

type Config struct {
	Bucket    string
	KeyPrefix string
	Interval  time.Duration
	Retain    int
	TempDir   string
	Logger    *logrus.Logger
}

type manager struct {
	cfg      Config
	snapshot SnapshotFunc
	storage  storage.Service
	now      func() time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
	runMu  sync.Mutex
}

func NewManager(cfg Config, snapshot SnapshotFunc, store storage.Service) Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retain <= 0 {
		cfg.Retain = 7
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &manager{
		cfg:      cfg,
		snapshot: snapshot,
		storage:  store,
		now:      time.Now,
	}
}

func (m *manager) Start(ctx context.Context) error {
	if m.cfg.Bucket == "" {
		return fmt.Errorf("backup bucket is required")
	}
	if err := os.MkdirAll(m.cfg.TempDir, 0o755); err != nil {
		return fmt.Errorf("create backup temp dir: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				location, err := m.RunOnce(runCtx)
				if err != nil {
					if runCtx.Err() == nil {
						m.cfg.Logger.WithError(err).Error("database backup failed")
					}
					continue
				}
				m.cfg.Logger.Infof("database backup uploaded to %s", location)
			}
		}
	}()

	m.cfg.Logger.Infof("backup manager started, every %s to bucket %s", m.cfg.Interval, m.cfg.Bucket)
	return nil
}

func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("backup manager stopped")
}

// RunOnce takes one snapshot, uploads it, and prunes old snapshots.
func (m *manager) RunOnce(ctx context.Context) (string, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	name := fmt.Sprintf("tasks-%s-%s%s", m.now().UTC().Format("20060102T150405Z"), uuid.NewString(), objectSuffix)
	local := filepath.Join(m.cfg.TempDir, name)
	defer os.Remove(local)

	if err := m.snapshot(ctx, local); err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}

	location, err := m.storage.UploadFile(ctx, local, m.cfg.Bucket, m.objectKey(name))
	if err != nil {
		return "", err
	}

	if err := m.prune(ctx); err != nil {
		m.cfg.Logger.WithError(err).Warn("prune old backups")
	}
	return location, nil
}

func (m *manager) objectKey(name string) string {
	if m.cfg.KeyPrefix == "" {
		return name
	}
	return m.cfg.KeyPrefix + "/" + name
}

// prune deletes the oldest snapshots beyond the retention count. Object names
// embed a sortable UTC timestamp, so key order is age order.
func (m *manager) prune(ctx context.Context) error {
	objects, err := m.storage.ListObjects(ctx, m.cfg.Bucket, m.objectKey("tasks-"))
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, objectSuffix) {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) <= m.cfg.Retain {
		return nil
	}

	sort.Strings(keys)
	return m.storage.DeleteObjects(ctx, m.cfg.Bucket, keys[:len(keys)-m.cfg.Retain])
}
