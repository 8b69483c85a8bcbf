/*
Package clients provides a client library for the blob API served by
cmd/idaserver.

BlobClient implements interfaces.PersistenceService, so code written against
a local persistence service can talk to a remote server unchanged. Server
error responses are mapped back onto the sentinel errors of the interfaces
package:

  - 404 wraps ErrInsufficientFragments
  - 502 wraps ErrNotFullySaved

# Example Usage

	client := clients.NewBlobClient("http://127.0.0.1:8080", 30*time.Second)

	if err := client.Save(ctx, "report-2024", data); err != nil {
	    return err
	}

	data, err := client.Load(ctx, "report-2024")
	if errors.Is(err, interfaces.ErrInsufficientFragments) {
	    // the blob is gone or too many repositories are unavailable
	}
*/
package clients
