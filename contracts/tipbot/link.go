package tipbot

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/tipbot-contract/contracts/tipbot/tipbotconst"
)

func handleKey(handle string) []byte {
	return append([]byte{tipbotconst.HandlePrefix}, []byte(handle)...)
}

func linkKey(addr interop.Hash160) []byte {
	return append([]byte{tipbotconst.LinkPrefix}, addr...)
}

// checkHandle validates chat handle. Handle must consist of lowercase
// letters, digits and underscores.
func checkHandle(handle string) {
	if !isValidHandle(handle) {
		panic(tipbotconst.ErrInvalidHandle)
	}
}

func isValidHandle(handle string) bool {
	l := len(handle)
	if l < tipbotconst.MinHandleLength || l > tipbotconst.MaxHandleLength {
		return false
	}

	for i := 0; i < l; i++ {
		c := handle[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}

	return true
}

// resolveHandle returns account linked to the handle or nil.
func resolveHandle(ctx storage.Context, handle string) interop.Hash160 {
	if len(handle) > tipbotconst.MaxHandleLength {
		return nil
	}

	data := storage.Get(ctx, handleKey(handle))
	if data == nil {
		return nil
	}

	return data.(interop.Hash160)
}

// linkedHandle returns handle linked to the account or empty string.
func linkedHandle(ctx storage.Context, addr interop.Hash160) string {
	data := storage.Get(ctx, linkKey(addr))
	if data == nil {
		return ""
	}

	return data.(string)
}

// putLink installs both directions of the link at once.
func putLink(ctx storage.Context, addr interop.Hash160, handle string) {
	storage.Put(ctx, handleKey(handle), addr)
	storage.Put(ctx, linkKey(addr), handle)
}

// deleteLink removes both directions of the link at once.
func deleteLink(ctx storage.Context, addr interop.Hash160, handle string) {
	storage.Delete(ctx, handleKey(handle))
	storage.Delete(ctx, linkKey(addr))
}

// linkAccount binds the handle to the account and produces LinkChanged
// notification. It returns false if exactly this pair is already linked.
func linkAccount(ctx storage.Context, addr interop.Hash160, handle string) bool {
	holder := resolveHandle(ctx, handle)
	if holder != nil {
		if holder.Equals(addr) {
			return false
		}

		panic(tipbotconst.ErrHandleAlreadyLinked)
	}

	if linkedHandle(ctx, addr) != "" {
		panic(tipbotconst.ErrCallerAlreadyLinked)
	}

	putLink(ctx, addr, handle)
	runtime.Notify(tipbotconst.LinkChangedEvent, addr, handle, true)

	return true
}
