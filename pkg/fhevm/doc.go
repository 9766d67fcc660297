// Package fhevm bootstraps ready FHEVM instances.
//
// A Creator drives one SDK environment through load, init and instance
// creation, reporting each step through Config.OnStatusChange and reusing
// public key material from a pubkey.Cache. A Bootstrapper picks between the
// real SDK and the mock up front and keeps at most one attempt in flight:
//
//	b, err := fhevm.NewFromEnv()
//	if err != nil {
//		return err
//	}
//	inst, err := b.Bootstrap(ctx, fhevm.Config{
//		Provider:       provider.FromURL("http://localhost:8545"),
//		OnStatusChange: func(s fhevm.Status) { log.Println(s) },
//	})
//
// Errors are *Error values whose Kind tells load, shape, init,
// configuration and construction failures apart. errors.Is(err, ErrAborted)
// reports cancellation, which never triggers the mock fallback.
package fhevm
