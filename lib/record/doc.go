// Package record defines the schema-free data model of the object store.
//
// A Record is an ordered mapping from field name to Value. A Value is a tagged
// union over the structured-value domain: null, bool, number, string, array and
// object (a nested Record). Values are immutable once constructed; accessors hand
// out copies of arrays and nested objects.
//
// Key Components:
//
//   - Value: Constructed with Null, Bool, Number, String, Array, Object or converted
//     from plain Go values with ValueOf. ValueOf is the single validation point for
//     the structured-value domain: functions, channels, structs, complex numbers and
//     non-finite floats are rejected.
//
//   - Record: Keeps insertion order for encoding and iteration. The reserved field
//     IDField ("_id") carries the identifier assigned by the store.
//
//   - Key: Value.Key returns a canonical string that is equal for two values exactly
//     when Value.Equal reports true. The store uses it to index primary-key values of
//     any kind in a plain Go map.
//
// JSON Encoding:
//
//	Values and Records map 1:1 onto JSON. Numbers are float64, so integers above
//	2^53 lose precision. Field order survives a marshal / unmarshal round trip.
//
// Usage:
//
//	r, err := record.FromFields(
//		record.F("sessionId", "abc123"),
//		record.F("refId", "user1"),
//		record.F("expire", nil),
//	)
package record
