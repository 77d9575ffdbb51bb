/*
Package migration provides framework to test updates of the Tipbot ledger
contract.

The ledger holds user funds and is updated on the fly, so stored balances and
links must survive every update. The package provides services of Neo
blockchain and the ledger contract needed for testing. Test blockchain
environment is based on the contract snapshot (see reconcile/snapshot package)
pulled from the remote blockchain or composed by the test itself.
*/
package migration
