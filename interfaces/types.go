package interfaces

import (
	"fmt"
	"net/url"
	"strings"
)

// FragmentFileExt is the extension of the single object a repository holds per data ID.
const FragmentFileExt = "frag"

// FragmentName returns the canonical object name of a data ID's fragment inside a repository.
// The fragment number is never part of the name, it is implied by which repository holds it.
func FragmentName(dataID string) string {
	return dataID + "." + FragmentFileExt
}

// FragmentMetadata is the durable placement record of one fragment.
type FragmentMetadata struct {
	// DataID identifies the blob the fragment was split from.
	DataID string
	// FragmentNumber is the position of the fragment in the split output, in [0, N).
	FragmentNumber int
	// RepositoryLocation is the location URI of the repository holding the fragment.
	RepositoryLocation string
}

// NewFragmentMetadata creates a placement record.
func NewFragmentMetadata(dataID string, fragmentNumber int, location string) FragmentMetadata {
	return FragmentMetadata{
		DataID:             dataID,
		FragmentNumber:     fragmentNumber,
		RepositoryLocation: location,
	}
}

// String returns a compact representation for logging.
func (m FragmentMetadata) String() string {
	return fmt.Sprintf("FragmentMetadata[dataId=%q, fragmentNumber=%d, repositoryLocation=%q]",
		m.DataID, m.FragmentNumber, m.RepositoryLocation)
}

// Fragment is one slice of a dispersed blob, tagged with its original fragment number.
type Fragment struct {
	Number int
	Data   []byte
}

// RepositoryLocation represents the URI of a fragment repository.
type RepositoryLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname, bucket or repository name
	Path   string     // Resource path
	Query  url.Values // Query parameters
	User   *url.Userinfo
}

// ParseRepositoryLocation parses and validates a repository location URI.
// The URI format is [scheme]://[auth@]host[:port][/path][?params].
func ParseRepositoryLocation(uri string) (RepositoryLocation, error) {
	if strings.TrimSpace(uri) == "" {
		return RepositoryLocation{}, fmt.Errorf("%w: empty location", ErrInvalidLocationURI)
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return RepositoryLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	if parsed.Scheme == "" {
		return RepositoryLocation{}, fmt.Errorf("%w: missing scheme in %q", ErrInvalidLocationURI, uri)
	}

	return RepositoryLocation{
		Raw:    uri,
		Scheme: strings.ToLower(parsed.Scheme),
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		User:   parsed.User,
	}, nil
}

// String returns the original URI string.
func (loc RepositoryLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc RepositoryLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc RepositoryLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}
