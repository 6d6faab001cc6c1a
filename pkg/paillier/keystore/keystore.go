package keystore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/coinbase/cb-paillier-go/pkg/paillier"
	"github.com/coinbase/cb-paillier-go/pkg/paillier/keyfile"
	"github.com/coinbase/cb-paillier-go/pkg/paillier/logging"
)

var (
	// ErrNotFound indicates no entry with the requested ID.
	ErrNotFound = errors.New("keystore: key not found")

	// ErrExists indicates an entry with the same ID is already stored.
	ErrExists = errors.New("keystore: key already exists")

	// ErrSealBroken indicates a wrong passphrase or a modified sealed key.
	ErrSealBroken = errors.New("keystore: cannot unseal private key")

	// ErrClosed indicates use of a Store after Close.
	ErrClosed = errors.New("keystore: store closed")
)

// Options configures Open. The zero value is usable.
type Options struct {
	// Iterations is the PBKDF2 work factor for entries written by this
	// Store. Zero selects DefaultIterations.
	Iterations int

	// Random supplies salts and nonces and must be safe for concurrent use.
	// Nil selects crypto/rand.Reader.
	Random io.Reader

	// Logger receives records about store operations. Nil logs to
	// slog.Default().
	Logger logging.Logger
}

// Entry describes a stored key without unsealing it.
type Entry struct {
	ID        uuid.UUID
	Bits      int
	CreatedAt time.Time
}

// Store is a SQLite backed key store. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	db         *sql.DB
	iterations int
	random     io.Reader
	logger     logging.Logger
}

// Open opens or creates the store at path.
func Open(ctx context.Context, path string, opts *Options) (*Store, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Iterations == 0 {
		o.Iterations = DefaultIterations
	}
	if o.Iterations < MinIterations {
		return nil, fmt.Errorf("keystore: iterations %d below minimum %d", o.Iterations, MinIterations)
	}
	if o.Random == nil {
		o.Random = rand.Reader
	}
	if o.Logger == nil {
		o.Logger = logging.New(nil)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA secure_delete=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{
		db:         db,
		iterations: o.Iterations,
		random:     o.Random,
		logger:     o.Logger.With("component", "keystore"),
	}, nil
}

// Close releases the database handle. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Put stores f, sealing its private key under passphrase.
func (s *Store) Put(ctx context.Context, f *keyfile.PrivateKeyFile, passphrase []byte) error {
	pub, err := keyfile.MarshalPublicCBOR(f.Public())
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}
	priv, err := keyfile.MarshalPrivateCBOR(f)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}
	defer paillier.ZeroizeBytes(priv)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	box, err := seal(s.random, passphrase, priv, f.ID[:], s.iterations)
	if err != nil {
		return fmt.Errorf("seal private key: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO keys (id, bits, created_at, public_key, salt, nonce, iterations, sealed_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID.String(), f.Bits, f.CreatedAt.Unix(), pub, box.salt, box.nonce, box.iterations, box.box,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrExists, f.ID)
		}
		return fmt.Errorf("insert key: %w", err)
	}
	s.logger.Info(ctx, "key stored", "id", f.ID.String(), "bits", f.Bits)
	return nil
}

// PublicKey returns the public key stored under id.
func (s *Store) PublicKey(ctx context.Context, id uuid.UUID) (*keyfile.PublicKeyFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT public_key FROM keys WHERE id = ?`, id.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query public key: %w", err)
	}
	return keyfile.UnmarshalPublicCBOR(data)
}

// PrivateKey unseals and returns the private key stored under id.
func (s *Store) PrivateKey(ctx context.Context, id uuid.UUID, passphrase []byte) (*keyfile.PrivateKeyFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	var box sealed
	err := s.db.QueryRowContext(ctx,
		`SELECT salt, nonce, iterations, sealed_key FROM keys WHERE id = ?`, id.String(),
	).Scan(&box.salt, &box.nonce, &box.iterations, &box.box)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query sealed key: %w", err)
	}

	priv, err := box.open(passphrase, id[:])
	if err != nil {
		s.logger.Warn(ctx, "unseal failed", "id", id.String())
		return nil, err
	}
	defer paillier.ZeroizeBytes(priv)

	f, err := keyfile.UnmarshalPrivateCBOR(priv)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if !keyfile.SameID(f.ID, id) {
		f.Key.Zeroize()
		return nil, fmt.Errorf("%w: stored document has id %s", ErrSealBroken, f.ID)
	}
	return f, nil
}

// List returns every stored entry, oldest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, bits, created_at FROM keys ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			id      string
			e       Entry
			created int64
		)
		if err := rows.Scan(&id, &e.Bits, &created); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse key id %q: %w", id, err)
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return entries, nil
}

// Delete removes the entry stored under id.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM keys WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.logger.Info(ctx, "key deleted", "id", id.String())
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
