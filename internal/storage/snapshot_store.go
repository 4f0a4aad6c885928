package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	apperrors "github.com/portfolio-tracker/internal/errors"
	"github.com/portfolio-tracker/internal/models"
)

// SnapshotFileHeader is written above the snapshot mapping
const SnapshotFileHeader = "# Portfolio snapshots - captured on the 1st of each month\n" +
	"# Run `snapshot capture` to add a new snapshot\n"

// YAMLSnapshotStore keeps monthly snapshots in a single YAML file
type YAMLSnapshotStore struct {
	path string
}

// NewYAMLSnapshotStore creates a store backed by the file at path
func NewYAMLSnapshotStore(path string) *YAMLSnapshotStore {
	return &YAMLSnapshotStore{path: path}
}

// Path returns the backing file
func (s *YAMLSnapshotStore) Path() string {
	return s.path
}

// Load reads every snapshot. A missing or empty file is an empty store.
func (s *YAMLSnapshotStore) Load(ctx context.Context) (map[string]models.Snapshot, error) {
	snapshots := make(map[string]models.Snapshot)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return snapshots, nil
		}
		return nil, apperrors.NewStorageError("read snapshots", errors.Wrapf(err, "open %s", s.path))
	}

	if err := yaml.Unmarshal(data, &snapshots); err != nil {
		return nil, apperrors.NewStorageError("read snapshots", errors.Wrapf(err, "decode %s", s.path))
	}
	if snapshots == nil {
		snapshots = make(map[string]models.Snapshot)
	}
	return snapshots, nil
}

// Save rewrites the whole store, newest month first, under the header comment.
// The file is replaced atomically so a failed write leaves the old store intact.
func (s *YAMLSnapshotStore) Save(ctx context.Context, snapshots map[string]models.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeSnapshots(snapshots)
	if err != nil {
		return apperrors.NewStorageError("write snapshots", err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return apperrors.NewStorageError("write snapshots", err)
	}
	return nil
}

// encodeSnapshots renders the store as a mapping ordered by month descending
func encodeSnapshots(snapshots map[string]models.Snapshot) ([]byte, error) {
	months := make([]string, 0, len(snapshots))
	for month := range snapshots {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, month := range months {
		var value yaml.Node
		if err := value.Encode(snapshots[month]); err != nil {
			return nil, errors.Wrapf(err, "encode snapshot %s", month)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: month, Style: yaml.DoubleQuotedStyle},
			&value,
		)
	}

	var buf bytes.Buffer
	buf.WriteString(SnapshotFileHeader)
	buf.WriteString("\n")
	if len(months) == 0 {
		buf.WriteString("{}\n")
		return buf.Bytes(), nil
	}

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, errors.Wrap(err, "encode snapshots")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "flush snapshots")
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.Wrapf(err, "chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "rename %s to %s", tmpName, path)
	}
	return nil
}
