// Package testing provides standardised tests and benchmarks for
// object store implementations that satisfy the store.IObjectStore interface.
//
// The package contains:
//   - testing: A test suite for validating conformance to the IObjectStore contract
//     (copy semantics, primary-key uniqueness, index relocation, persistence across reopen)
//   - benchmark: Performance tests for the common store operations
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(t testing.TB, path, primaryKey string) store.IObjectStore {
//		s, err := NewMyStore(path, primaryKey)
//		if err != nil {
//			t.Fatal(err)
//		}
//		return s
//	}
//
//	// Running the standard test suite
//	storetesting.RunObjectStoreTests(t, "MyStore", factory)
//
//	// Running performance benchmarks
//	storetesting.RunObjectStoreBenchmarks(b, "MyStore", factory)
package testing
