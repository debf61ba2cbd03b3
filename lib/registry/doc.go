// Package registry keeps a list of servers in an object store.
//
// The store has no primary key; servers are addressed by the id the store
// assigns on Add. Each record carries label, node, ip, port and accessKey.
// Add and Update enforce the limits of the server list: the port must be
// within 1..65535, a node label may be at most 40 and a server label at most
// 128 characters long.
package registry
