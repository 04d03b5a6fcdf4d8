// Package hostdriver is a minimal stand-in for the out-of-scope host-side
// device driver spec.md section 1 names explicitly: buffer allocation and
// binary loading, consumed only as opaque handles. vxspawn never imports
// this package — it exists for cmd/vxsim to have something realistic to
// call before a launch, the same way the conformance harness and matmul
// regression sit outside the core.
package hostdriver

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// ErrHandleNotFound is returned when a BufferHandle or BinaryHandle does
// not correspond to any allocation this Driver has made.
var ErrHandleNotFound = errors.New("hostdriver: handle not found")

// BufferHandle is an opaque device-memory address, the only thing the
// core ever sees from this package's domain (spec.md section 1: "consumed
// only as opaque device handles and memory-address queries").
type BufferHandle uint64

// BinaryHandle is an opaque loaded-kernel-binary handle.
type BinaryHandle uint64

// Driver persists buffer and binary allocations in an embedded Badger
// store, grounded on the teacher's own use of BadgerDB as its durable
// backing store (pkg/storage/badger_serialization.go) — repurposed here
// from graph nodes/edges to device-memory-image bytes.
type Driver struct {
	db       *badger.DB
	nextID   atomic.Uint64
	inMemory bool
}

// Open starts a driver backed by an on-disk Badger database at dir, or an
// in-memory one if dir is empty.
func Open(dir string) (*Driver, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("hostdriver: opening store: %w", err)
	}
	return &Driver{db: db, inMemory: dir == ""}, nil
}

// Close releases the underlying store.
func (d *Driver) Close() error {
	return d.db.Close()
}

func bufferKey(h BufferHandle) []byte { return []byte(fmt.Sprintf("buf/%020d", uint64(h))) }
func binaryKey(h BinaryHandle) []byte { return []byte(fmt.Sprintf("bin/%020d", uint64(h))) }

// Allocate reserves size bytes of simulated device memory and returns an
// opaque handle to it, zero-filled.
func (d *Driver) Allocate(size int) (BufferHandle, error) {
	handle := BufferHandle(d.nextID.Add(1))
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(bufferKey(handle), make([]byte, size))
	})
	if err != nil {
		return 0, fmt.Errorf("hostdriver: allocating buffer: %w", err)
	}
	return handle, nil
}

// Write copies data into the buffer identified by handle, replacing its
// previous contents.
func (d *Driver) Write(handle BufferHandle, data []byte) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(bufferKey(handle), append([]byte(nil), data...))
	})
	if err != nil {
		return fmt.Errorf("hostdriver: writing buffer %d: %w", handle, err)
	}
	return nil
}

// Read returns a copy of the bytes backing handle.
func (d *Driver) Read(handle BufferHandle) ([]byte, error) {
	var out []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bufferKey(handle))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrHandleNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("hostdriver: reading buffer %d: %w", handle, err)
	}
	return out, nil
}

// Release frees the buffer identified by handle.
func (d *Driver) Release(handle BufferHandle) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(bufferKey(handle))
	})
	if err != nil {
		return fmt.Errorf("hostdriver: releasing buffer %d: %w", handle, err)
	}
	return nil
}
