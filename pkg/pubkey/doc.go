// Package pubkey caches FHE public key material by ACL contract address.
//
// The cache is an optimisation for instance creation and never the source of
// truth: a miss returns empty material, and callers are expected to treat
// unusable entries the same way. Records live in a Backend, and NewFromEnv
// selects one from FHEVM_KEYCACHE_* variables:
//
//	cache := pubkey.NewMemory()
//	if err := cache.Set(ctx, acl, publicKey, publicParams); err != nil {
//		return err
//	}
//	km, err := cache.Get(ctx, acl)
//	if err != nil {
//		return err
//	}
//	if km.IsZero() {
//		// fetch from the relayer
//	}
package pubkey
