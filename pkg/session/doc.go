/*
Package session implements the document library: serialized access to imported
documents in a DocumentStore.

Operations on the same document id are serialized in-process with reference-counted
mutexes and, when a DistributedLocker is configured, across replicas as well.
*/
package session
