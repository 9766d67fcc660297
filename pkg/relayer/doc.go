// Package relayer is the "relayer" SDK driver. Importing it registers the
// driver with package sdk:
//
//	import _ "github.com/fhecounter/fhevm_sdk_go/pkg/relayer"
//
// Values are encrypted locally with lattigo BGV under the relayer's public
// key; the relayer turns ciphertexts into handles plus an input proof and
// serves public decryption.
package relayer
