package store

import "github.com/02ricardosouza/robot02-cripto/internal/models"

// TradeRepository defines the interface for the append-only trade history
// store. It abstracts the underlying storage mechanism (e.g., BadgerDB,
// in-memory) from the trading engine, which only ever appends records.
type TradeRepository interface {
	// AppendTrade durably appends one trade record. Safe for concurrent use.
	AppendTrade(record *models.TradeRecord) error

	// ListTrades returns all recorded trades for the given instrument,
	// oldest first. It returns an empty slice when none exist.
	ListTrades(symbol string) ([]models.TradeRecord, error)

	// Close gracefully closes the connection to the database.
	Close() error
}
