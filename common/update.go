package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/neo"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

// HasUpdateAccess returns true if contract can be updated.
func HasUpdateAccess() bool {
	return runtime.CheckWitness(CommitteeAddress())
}

// CommitteeAddress returns multi address of the chain committee with
// `M = N/2+1` threshold.
func CommitteeAddress() interop.Hash160 {
	committee := neo.GetCommittee()
	if committee == nil {
		panic("failed to get committee")
	}

	return contract.CreateMultisigAccount(len(committee)/2+1, committee)
}
