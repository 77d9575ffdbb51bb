package snapshot

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
)

type kv struct{ k, v []byte }

// Snapshot is a contract snapshot read from the file system.
type Snapshot struct {
	ID      ID
	State   state.Contract
	storage []kv
}

// IterateStorage passes all storage items into f. It breaks on any f's
// error and returns it.
func (x *Snapshot) IterateStorage(f func(key, value []byte) error) error {
	for i := range x.storage {
		err := f(x.storage[i].k, x.storage[i].v)
		if err != nil {
			return err
		}
	}
	return nil
}

// Read reads the snapshot with the given ID from the directory.
func Read(dir string, id ID) (*Snapshot, error) {
	var s streams

	err := openStreams(&s, dir, id, true)
	if err != nil {
		return nil, err
	}

	defer s.close()

	res := &Snapshot{ID: id}

	err = res.fromStreams(s.contract, s.storage)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", id, err)
	}

	return res, nil
}

// List returns IDs of all snapshots in the directory sorted by label and
// height.
func List(dir string) ([]ID, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var res []ID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sep+stateFileSuffix) {
			continue
		}

		var id ID
		err = id.decodeString(name)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot ID from file name '%s': %w", name, err)
		}

		res = append(res, id)
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].Label != res[j].Label {
			return res[i].Label < res[j].Label
		}
		return res[i].Block < res[j].Block
	})

	return res, nil
}

func (x *Snapshot) fromStreams(rContract, rStorage io.Reader) error {
	var st contractState

	err := json.NewDecoder(rContract).Decode(&st)
	if err != nil {
		return fmt.Errorf("decode contract state from JSON: %w", err)
	}

	x.State = st.State

	_csv := csv.NewReader(rStorage)
	_csv.FieldsPerRecord = 2
	_csv.ReuseRecord = true

	for {
		rec, err := _csv.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read next CSV record: %w", err)
		}

		var item kv

		// out-of-range safety guaranteed by csv settings
		item.k, err = _encoding.DecodeString(rec[0])
		if err != nil {
			return fmt.Errorf("decode storage item key: %w", err)
		}

		item.v, err = _encoding.DecodeString(rec[1])
		if err != nil {
			return fmt.Errorf("decode storage item value: %w", err)
		}

		x.storage = append(x.storage, item)
	}
}
