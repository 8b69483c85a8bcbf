/*
Package httpserver exposes a persistence service over HTTP.

Blobs are addressed by a caller-chosen data ID and stored through the
configured persistence service, so the server never sees fragments directly.

# Blob API Endpoints

  - PUT /api/blobs/{id} - Store the request body under id (204)
  - POST /api/blobs - Store the request body under a new UUID (201, {"id": ...})
  - GET /api/blobs/{id} - Reconstruct a blob (200, application/octet-stream)
  - DELETE /api/blobs/{id} - Delete every fragment ({"deleted": n})
  - GET /api/blobs/{id}/fragments - List fragment placements

A blob that cannot be reconstructed because too few fragments are recorded
or readable is reported as 404. A save that did not store every fragment is
reported as 502. Every other failure is a 500.

# Operational Endpoints

  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Mark the server as not ready
  - GET /undrain - Mark the server as ready
  - /debug/pprof - Profiling, when enabled
*/
package httpserver
