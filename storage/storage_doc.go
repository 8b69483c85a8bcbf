// Package storage provides fragment repositories with pluggable backends.
//
// Every repository stores opaque fragment bytes under a flat object name,
// normally {dataId}.frag, and is identified by a location URI. The same URI is
// recorded in fragment metadata, so RepositoryFactory must resolve a recorded
// location back to an equivalent repository:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/ida/repo-0 - directory on the local filesystem
//   - s3://[KEY:SECRET@]bucket/prefix?region=us-west-2&endpoint=host&path_style=true
//   - minio://[KEY:SECRET@]host:9000/bucket/prefix?secure=true
//   - ipfs://host:5001/mfs/dir?timeout=30s - directory in the node's mutable file system
//   - mirror://?location=URI&location=URI - writes to all, reads from the first that has the fragment
//   - mem://name - process-local memory, for tests and demos
//
// Backend clients (S3 sessions, MinIO clients, IPFS shells) are owned by the
// factory that created the repository. There are no process-wide singletons.
//
// # Error semantics
//
// LoadFragment of a missing object returns a RepositoryError wrapping
// interfaces.ErrFragmentNotFound. DeleteFragment of a missing object returns
// (false, nil). All other failures are RepositoryErrors carrying the
// repository location.
package storage
