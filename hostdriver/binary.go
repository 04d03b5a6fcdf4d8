package hostdriver

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/blake2b"
)

// ErrChecksumMismatch is returned when a previously loaded binary's bytes
// no longer hash to the checksum recorded at load time.
var ErrChecksumMismatch = errors.New("hostdriver: binary checksum mismatch")

type binaryRecord struct {
	checksum [blake2b.Size256]byte
	bytes    []byte
}

// LoadBinary records a kernel binary image and returns an opaque handle to
// it, checksumming the bytes with blake2b the way a real driver would
// verify an image before trusting it — the out-of-scope "binary loading"
// spec.md section 1 mentions, given a concrete (if toy) integrity check.
func (d *Driver) LoadBinary(image []byte) (BinaryHandle, error) {
	sum := blake2b.Sum256(image)
	handle := BinaryHandle(d.nextID.Add(1))

	err := d.db.Update(func(txn *badger.Txn) error {
		buf := make([]byte, 0, len(sum)+len(image))
		buf = append(buf, sum[:]...)
		buf = append(buf, image...)
		return txn.Set(binaryKey(handle), buf)
	})
	if err != nil {
		return 0, fmt.Errorf("hostdriver: loading binary: %w", err)
	}
	return handle, nil
}

// VerifyBinary re-reads the binary behind handle and confirms its bytes
// still match the checksum recorded at load time.
func (d *Driver) VerifyBinary(handle BinaryHandle) error {
	rec, err := d.readBinary(handle)
	if err != nil {
		return err
	}
	sum := blake2b.Sum256(rec.bytes)
	if sum != rec.checksum {
		return ErrChecksumMismatch
	}
	return nil
}

// Binary returns the raw bytes behind handle, after verifying its checksum.
func (d *Driver) Binary(handle BinaryHandle) ([]byte, error) {
	rec, err := d.readBinary(handle)
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(rec.bytes)
	if sum != rec.checksum {
		return nil, ErrChecksumMismatch
	}
	return rec.bytes, nil
}

func (d *Driver) readBinary(handle BinaryHandle) (binaryRecord, error) {
	var rec binaryRecord
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(binaryKey(handle))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrHandleNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) < len(rec.checksum) {
				return fmt.Errorf("hostdriver: corrupt binary record for handle %d", handle)
			}
			copy(rec.checksum[:], val[:len(rec.checksum)])
			rec.bytes = append([]byte(nil), val[len(rec.checksum):]...)
			return nil
		})
	})
	if err != nil {
		return binaryRecord{}, fmt.Errorf("hostdriver: reading binary %d: %w", handle, err)
	}
	return rec, nil
}
