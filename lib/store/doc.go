// Package store provides the high-level interface of the embedded object store:
// a schema-free collection of records, each carrying an identifier assigned by the
// store, with an optional unique primary-key index over one field.
//
// The package focuses on:
//   - A unified interface (IObjectStore) for record operations
//   - A structured error taxonomy shared by all implementations
//
// Key Components:
//
//   - IObjectStore Interface: CRUD and scan operations. Reads return copies of the
//     stored records together with a loaded flag. Absence is normal control flow
//     and never reported as an error.
//
//   - Error System: Error carries a RetCode, a message and an optional cause.
//     The codes map onto the failure classes of the store:
//
//   - RetCValidation: a record passed to Create (or a value passed to Set) is not
//     representable in the structured-value domain.
//
//   - RetCDuplicateKey: the write would give two records the same non-null
//     primary-key value.
//
//   - RetCPersistence: the backing file exists but cannot be decompressed or
//     parsed when the store is opened, or a synchronous save failed.
//
//   - RetCInvalidOperation: e.g. modifying the identifier field or a key lookup
//     on a store without primary key.
//
//   - RetCStopped: the store was already stopped.
//
//     Failed operations never leave the store partially mutated.
//
// Implementations:
//
//	The file-backed implementation lives in the "github.com/ValentinKolb/xdb/lib/store/xstore"
//	package. A reusable conformance suite for implementations is provided by
//	"github.com/ValentinKolb/xdb/lib/store/testing".
package store
