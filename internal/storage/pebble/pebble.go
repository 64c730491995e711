// internal/storage/pebble/pebble.go
package pebble

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-curve/internal/storage"
	"github.com/rovshanmuradov/launchpad-curve/internal/storage/models"
)

var (
	curvePrefix = []byte("curve/")
	tradePrefix = []byte("trade/")
)

// Store implements storage.Storage on pebble.
type Store struct {
	mu     sync.Mutex
	db     *pebble.DB
	seqs   map[solana.PublicKey]uint64
	logger *zap.Logger
}

var _ storage.Storage = (*Store)(nil)

// Open opens (or creates) a store under dir. With inMemory the data lives in
// a memory filesystem and dir is only a name.
func Open(dir string, inMemory bool, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &pebble.Options{}
	if inMemory {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble store at %s: %w", dir, err)
	}

	logger.Named("storage").Info("Audit store opened",
		zap.String("path", dir),
		zap.Bool("in_memory", inMemory))

	return &Store{
		db:     db,
		seqs:   make(map[solana.PublicKey]uint64),
		logger: logger.Named("storage"),
	}, nil
}

func curveKey(mint solana.PublicKey) []byte {
	return append(append([]byte{}, curvePrefix...), mint[:]...)
}

func tradeMintPrefix(mint solana.PublicKey) []byte {
	k := append(append([]byte{}, tradePrefix...), mint[:]...)
	return append(k, '/')
}

// Sequence numbers are big-endian so keys sort in save order.
func tradeKey(mint solana.PublicKey, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(tradeMintPrefix(mint), seq)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (s *Store) SaveCurve(ctx context.Context, c *models.Curve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return storage.ErrClosed
	}
	data, err := models.Encode(c)
	if err != nil {
		return err
	}
	if err := s.db.Set(curveKey(c.Mint), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save curve: %w", err)
	}
	return nil
}

func (s *Store) GetCurve(ctx context.Context, mint solana.PublicKey) (*models.Curve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, storage.ErrClosed
	}

	val, closer, err := s.db.Get(curveKey(mint))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: curve %s", storage.ErrNotFound, mint)
		}
		return nil, err
	}
	defer closer.Close()

	var c models.Curve
	if err := models.Decode(val, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCurves(ctx context.Context) ([]*models.Curve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, storage.ErrClosed
	}

	var out []*models.Curve
	err := s.scan(curvePrefix, 0, -1, func(val []byte) error {
		var c models.Curve
		if err := models.Decode(val, &c); err != nil {
			return err
		}
		out = append(out, &c)
		return nil
	})
	return out, err
}

// SaveTrade assigns t.Seq and writes the trade.
func (s *Store) SaveTrade(ctx context.Context, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return storage.ErrClosed
	}

	mint := solana.PublicKey(t.Mint)
	seq, err := s.nextSeq(mint)
	if err != nil {
		return err
	}
	t.Seq = seq

	data, err := models.Encode(t)
	if err != nil {
		return err
	}
	if err := s.db.Set(tradeKey(mint, seq), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	s.seqs[mint] = seq
	return nil
}

// ListTrades returns up to limit trades of mint after skipping offset.
// A non-positive limit returns all of them.
func (s *Store) ListTrades(ctx context.Context, mint solana.PublicKey, limit, offset int) ([]*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, storage.ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}

	var out []*models.Trade
	err := s.scan(tradeMintPrefix(mint), offset, limit, func(val []byte) error {
		var t models.Trade
		if err := models.Decode(val, &t); err != nil {
			return err
		}
		out = append(out, &t)
		return nil
	})
	return out, err
}

// nextSeq returns the sequence for the next trade of mint, seeding the
// in-memory counter from the last stored key on first use.
func (s *Store) nextSeq(mint solana.PublicKey) (uint64, error) {
	if last, ok := s.seqs[mint]; ok {
		return last + 1, nil
	}

	prefix := tradeMintPrefix(mint)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 1, nil
	}
	key := iter.Key()
	if len(key) != len(prefix)+8 || !bytes.HasPrefix(key, prefix) {
		return 0, fmt.Errorf("malformed trade key %x", key)
	}
	return binary.BigEndian.Uint64(key[len(prefix):]) + 1, nil
}

func (s *Store) scan(prefix []byte, offset, limit int, fn func(val []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return err
	}
	defer iter.Close()

	skipped, taken := 0, 0
	for iter.First(); iter.Valid(); iter.Next() {
		if skipped < offset {
			skipped++
			continue
		}
		if limit >= 0 && taken >= limit {
			break
		}
		if err := fn(iter.Value()); err != nil {
			return err
		}
		taken++
	}
	return iter.Error()
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.logger.Info("Audit store closed")
	return err
}
