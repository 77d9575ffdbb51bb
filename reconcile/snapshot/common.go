package snapshot

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
)

// ID is a unique identifier of the snapshot.
type ID struct {
	// Label of the snapshot source (e.g. testnet, mainnet).
	Label string
	// Blockchain height at which the state was pulled.
	Block uint32
}

// String returns hyphen-separated ID fields.
func (x ID) String() string {
	return x.Label + sep + strconv.FormatUint(uint64(x.Block), 10)
}

// decodes ID fields from the hyphen-separated string.
func (x *ID) decodeString(s string) error {
	i := strings.LastIndex(strings.TrimSuffix(s, sep+stateFileSuffix), sep)
	if i <= 0 {
		return fmt.Errorf("expected '%s'-separated label and block", sep)
	}

	block := strings.TrimSuffix(s[i+1:], sep+stateFileSuffix)
	n, err := strconv.ParseUint(block, 10, 32)
	if err != nil {
		return fmt.Errorf("decode block number from '%s': %w", block, err)
	}

	x.Label = s[:i]
	x.Block = uint32(n)

	return nil
}

// global encoding of binary values.
var _encoding = base64.StdEncoding

// contractState is a JSON-encoded information about the saved contract.
type contractState struct {
	Label string         `json:"label"`
	Block uint32         `json:"block"`
	State state.Contract `json:"state"`
}

// streams groups data streams for contract state and storage.
type streams struct {
	contract, storage io.ReadWriteCloser
}

func (x *streams) close() {
	_ = x.storage.Close()
	_ = x.contract.Close()
}

const (
	// word separator used in snapshot file naming
	sep = "-"
	// suffix of file with contract state
	stateFileSuffix = "contract.json"
	// suffix of file with storage items
	storageFileSuffix = "storage.csv"
)

func paths(dir string, id ID) (contract, storage string) {
	contract = filepath.Join(dir, id.String()+sep+stateFileSuffix)
	storage = filepath.Join(dir, id.String()+sep+storageFileSuffix)
	return
}

// openStreams opens data streams for the snapshot files located in the
// specified directory. If read flag is set, streams are read-only. Otherwise,
// files must not exist, and streams are write only.
func openStreams(s *streams, dir string, id ID, read bool) error {
	pathContract, pathStorage := paths(dir, id)

	var (
		err  error
		flag = os.O_RDONLY
		perm os.FileMode
	)

	if !read {
		flag = os.O_CREATE | os.O_EXCL | os.O_WRONLY
		perm = 0600
	}

	s.storage, err = os.OpenFile(pathStorage, flag, perm)
	if err != nil {
		return fmt.Errorf("open file with storage items: %w", err)
	}

	s.contract, err = os.OpenFile(pathContract, flag, perm)
	if err != nil {
		_ = s.storage.Close()
		return fmt.Errorf("open file with contract state: %w", err)
	}

	return nil
}
