package embedding

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"
)

const badgerKeyPrefix = "vec:"

// BadgerCache is a VectorCache stored in a local BadgerDB directory.
type BadgerCache struct {
	db     *badger.DB
	logger *zap.Logger
}

var _ VectorCache = (*BadgerCache)(nil)

// badgerLogger adapts zap to badger.Logger. Badger is chatty at info level,
// so its info messages are logged at debug.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any)   { l.logger.Errorf(msg, items...) }
func (l *badgerLogger) Warningf(msg string, items ...any) { l.logger.Warnf(msg, items...) }
func (l *badgerLogger) Infof(msg string, items ...any)    { l.logger.Debugf(msg, items...) }
func (l *badgerLogger) Debugf(msg string, items ...any)   { l.logger.Debugf(msg, items...) }

// OpenBadgerCache opens (creating if needed) a cache in dir. With inMemory
// set, dir is ignored and nothing touches the disk.
func OpenBadgerCache(dir string, inMemory bool, logger *zap.Logger) (*BadgerCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{logger: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerCache{db: db, logger: logger}, nil
}

// GetMany returns the cached vectors for keys. Missing keys are absent from
// the result; undecodable values are logged and treated as missing.
func (c *BadgerCache) GetMany(_ context.Context, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	err := c.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(badgerKeyPrefix + key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			vec, err := decodeVector(raw)
			if err != nil {
				c.logger.Warn("Dropping corrupt cached embedding", zap.String("key", key), zap.Error(err))
				continue
			}
			out[key] = vec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read embedding cache: %w", err)
	}
	return out, nil
}

// PutMany stores vectors in a single write batch.
func (c *BadgerCache) PutMany(_ context.Context, vectors map[string][]float32) error {
	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for key, vec := range vectors {
		if err := wb.Set([]byte(badgerKeyPrefix+key), encodeVector(vec)); err != nil {
			return fmt.Errorf("write embedding cache: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush embedding cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// encodeVector writes a little-endian length prefix followed by the float32 bits.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4+len(vec)*4)
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(vec)))
	off := 4
	for _, v := range vec {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("cached vector too small: %d bytes", len(data))
	}
	length := int(binary.LittleEndian.Uint32(data[:4]))
	data = data[4:]
	if len(data) != length*4 {
		return nil, fmt.Errorf("cached vector length mismatch: want %d floats, have %d bytes", length, len(data))
	}
	vec := make([]float32, length)
	for i := 0; i < length; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : (i+1)*4]))
	}
	return vec, nil
}
