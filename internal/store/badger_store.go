package store

import (
	"encoding/json"
	"fmt"

	"github.com/02ricardosouza/robot02-cripto/internal/models"

	"github.com/dgraph-io/badger/v3"
)

// badgerStore is the BadgerDB implementation of the TradeRepository.
type badgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewBadgerStore opens (or creates) a BadgerDB database at dbPath and
// returns a repository backed by it.
func NewBadgerStore(dbPath string) (TradeRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	// Badger's own logging is disabled to keep the app's logs clean.
	// Errors are still returned from DB operations.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	// A monotonically increasing sequence keeps appended keys ordered and
	// unique even under concurrent writers.
	seq, err := db.GetSequence([]byte("trade_seq"), 64)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &badgerStore{db: db, seq: seq}, nil
}

func tradeKey(symbol string, seq uint64) []byte {
	return []byte(fmt.Sprintf("trade:%s:%020d", symbol, seq))
}

func tradePrefix(symbol string) []byte {
	return []byte(fmt.Sprintf("trade:%s:", symbol))
}

// AppendTrade durably appends one trade record.
func (s *badgerStore) AppendTrade(record *models.TradeRecord) error {
	seq, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to reserve trade sequence: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal trade record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tradeKey(record.Symbol, seq), data)
	})
}

// ListTrades returns all trades for the instrument, oldest first.
func (s *badgerStore) ListTrades(symbol string) ([]models.TradeRecord, error) {
	trades := make([]models.TradeRecord, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := tradePrefix(symbol)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record models.TradeRecord
				if err := json.Unmarshal(val, &record); err != nil {
					return err
				}
				trades = append(trades, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return trades, nil
}

// Close releases the sequence lease and closes the database.
func (s *badgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
