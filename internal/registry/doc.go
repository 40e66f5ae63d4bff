// Package registry holds the local and remote widget collections and the
// folder trees derived from them.
//
// The local collection is loaded page by page and kept live: pages are
// appended as they arrive and single widgets are replaced or removed as the
// store changes. The remote collection is a snapshot of a shared catalog,
// loaded in one pass:
//
//	reg := registry.New(registry.Options{Remote: src, Notifier: n})
//	if err := reg.LoadRemoteSnapshot(ctx); err != nil {
//		// reported to n; whatever arrived before the failure is kept
//	}
//	hits := reg.FilterRemote("hero")
//
// A snapshot load stages records in private structures and publishes them
// when the fetch ends, so readers never see a half-built tree. Concurrent
// loads share one fetch. Filtering only reads the published snapshot, and
// repeating the last query returns the cached result.
//
// A Registry is safe for concurrent use. Trees returned by LocalTree and
// RemoteTree are never modified after they are returned.
package registry
