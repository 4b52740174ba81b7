package prover

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"golang.org/x/crypto/blake2b"

	"github.com/hoffmang9/WesoForge/classgroup"
	"github.com/hoffmang9/WesoForge/metrics"
)

// spillStore keeps encoded checkpoints in a scratch LevelDB. Each value is
// the BLAKE2b-256 digest of the encoding followed by the encoding itself.
type spillStore struct {
	group Group
	dir   string
	db    *leveldb.DB
	n     uint64
}

// newSpillStore creates a fresh database in a new directory under parent.
func newSpillStore(group Group, parent string) (*spillStore, error) {
	dir, err := os.MkdirTemp(parent, "wesoforge-checkpoints-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckpointStore, err)
	}
	db, err := leveldb.OpenFile(dir, &opt.Options{
		ErrorIfExist:       true,
		NoSync:             true,
		BlockCacheCapacity: 1 * opt.MiB,
		WriteBuffer:        4 * opt.MiB,
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: open %s: %v", ErrCheckpointStore, dir, err)
	}
	return &spillStore{group: group, dir: dir, db: db}, nil
}

func spillKey(i uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], i)
	return key[:]
}

func (s *spillStore) Append(f *classgroup.Form) error {
	enc, err := s.group.Encode(f)
	if err != nil {
		return fmt.Errorf("%w: encode checkpoint %d: %v", ErrCheckpointStore, s.n, err)
	}
	sum := blake2b.Sum256(enc)
	val := make([]byte, 0, len(sum)+len(enc))
	val = append(val, sum[:]...)
	val = append(val, enc...)
	if err := s.db.Put(spillKey(s.n), val, nil); err != nil {
		return fmt.Errorf("%w: write checkpoint %d: %v", ErrCheckpointStore, s.n, err)
	}
	s.n++
	metrics.CheckpointsSpilled.Inc()
	return nil
}

func (s *spillStore) At(i uint64) (*classgroup.Form, error) {
	if i >= s.n {
		return nil, fmt.Errorf("%w: index %d out of range [0,%d)", ErrCheckpointStore, i, s.n)
	}
	val, err := s.db.Get(spillKey(i), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: read checkpoint %d: %v", ErrCheckpointStore, i, err)
	}
	if len(val) < blake2b.Size256 {
		return nil, fmt.Errorf("%w: checkpoint %d truncated", ErrCheckpointStore, i)
	}
	enc := val[blake2b.Size256:]
	sum := blake2b.Sum256(enc)
	if !bytes.Equal(sum[:], val[:blake2b.Size256]) {
		return nil, fmt.Errorf("%w: checkpoint %d checksum mismatch", ErrCheckpointStore, i)
	}
	f, err := s.group.Decode(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: decode checkpoint %d: %v", ErrCheckpointStore, i, err)
	}
	return f, nil
}

func (s *spillStore) Len() uint64 { return s.n }

// Close closes the database and removes its directory.
func (s *spillStore) Close() error {
	err := s.db.Close()
	if rmErr := os.RemoveAll(s.dir); err == nil {
		err = rmErr
	}
	return err
}
