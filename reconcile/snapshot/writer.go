package snapshot

import (
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
)

// Writer saves Tipbot contract snapshot. Output file format:
//
//	'<label>-<block>-contract.json': JSON with the contract state
//	'<label>-<block>-storage.csv': CSV of the contract storage
//
// Storage CSV records are 'key,value' with base64-encoded binary data.
//
// Use List to find existing snapshots, Read and [Snapshot.IterateStorage]
// to access them.
type Writer struct {
	streams

	state contractState
	csv   *csv.Writer
}

// NewWriter returns Writer which saves the contract into given directory.
// Resulting Writer should be closed when finished working with it.
//
// NewWriter fails if the snapshot with provided ID already exists.
func NewWriter(dir string, id ID, st state.Contract) (*Writer, error) {
	var res Writer

	err := openStreams(&res.streams, dir, id, false)
	if err != nil {
		return nil, err
	}

	res.state = contractState{Label: id.Label, Block: id.Block, State: st}
	res.csv = csv.NewWriter(res.streams.storage)

	return &res, nil
}

// Write saves given binary key-value as storage item.
func (x *Writer) Write(key, value []byte) error {
	err := x.csv.Write([]string{
		_encoding.EncodeToString(key),
		_encoding.EncodeToString(value),
	})
	if err != nil {
		return fmt.Errorf("write storage item as CSV data: %w", err)
	}

	return nil
}

// Flush flushes accumulated snapshot to the file system.
func (x *Writer) Flush() error {
	jEnc := json.NewEncoder(x.streams.contract)
	jEnc.SetIndent("", " ")

	err := jEnc.Encode(x.state)
	if err != nil {
		return fmt.Errorf("encode contract state to JSON: %w", err)
	}

	x.csv.Flush()

	err = x.csv.Error()
	if err != nil {
		return fmt.Errorf("flush CSV data: %w", err)
	}

	return nil
}

// Close releases underlying resources of the Writer and makes it unusable.
func (x *Writer) Close() {
	x.close()
}
