// Package sdk loads and validates the encryption SDK used to build FHEVM
// instances.
//
// An SDK is described by a Module: the initSDK and createInstance entry
// points plus the network configuration the bundle ships with. Modules are
// produced by Sources. HTTP sources fetch a JSON manifest from a CDN and hand
// it to a Driver registered under the manifest's "driver" name, in the same
// way database/sql resolves drivers. A Loader walks an ordered list of sources
// and installs the first valid module into an Environment, the
// process-scoped holder of the module and its initialisation state.
package sdk
