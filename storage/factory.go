package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/minio/minio-go/v7"
	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// RepositoryFactory creates fragment repositories from location URIs.
// Repositories are cached by location, so resolving the same location twice
// yields the same instance and shares its backend client.
type RepositoryFactory struct {
	log *slog.Logger

	mu           sync.Mutex
	repositories map[string]interfaces.FragmentRepository
	s3Sessions   map[string]*session.Session
	minioClients map[string]*minio.Client
	memory       map[string]*MemoryRepository
}

var _ interfaces.RepositoryFactory = (*RepositoryFactory)(nil)

// NewRepositoryFactory creates a new factory instance.
func NewRepositoryFactory(logger *slog.Logger) *RepositoryFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoryFactory{
		log:          logger,
		repositories: make(map[string]interfaces.FragmentRepository),
		s3Sessions:   make(map[string]*session.Session),
		minioClients: make(map[string]*minio.Client),
		memory:       make(map[string]*MemoryRepository),
	}
}

// RepositoryFor resolves a location URI to a repository.
//
// Returns an error wrapping ErrInvalidLocationURI if the URI is malformed and
// ErrUnknownRepository if the scheme is unsupported.
func (rf *RepositoryFactory) RepositoryFor(location string) (interfaces.FragmentRepository, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	return rf.repositoryForLocked(location)
}

// RepositoriesFor resolves every location, failing on the first that can't be resolved.
func (rf *RepositoryFactory) RepositoriesFor(locations []string) ([]interfaces.FragmentRepository, error) {
	repositories := make([]interfaces.FragmentRepository, 0, len(locations))
	for _, location := range locations {
		repository, err := rf.RepositoryFor(location)
		if err != nil {
			return nil, err
		}
		repositories = append(repositories, repository)
	}
	return repositories, nil
}

func (rf *RepositoryFactory) repositoryForLocked(location string) (interfaces.FragmentRepository, error) {
	if repository, ok := rf.repositories[location]; ok {
		return repository, nil
	}

	loc, err := interfaces.ParseRepositoryLocation(location)
	if err != nil {
		return nil, interfaces.NewRepositoryError("RepositoryFor", location, "invalid location", err)
	}

	var repository interfaces.FragmentRepository
	switch loc.Scheme {
	case "file":
		repository, err = rf.createFileRepository(loc)
	case "s3":
		repository, err = rf.createS3Repository(loc)
	case "minio":
		repository, err = rf.createMinioRepository(loc)
	case "ipfs":
		repository, err = rf.createIPFSRepository(loc)
	case "mirror":
		repository, err = rf.createMirrorRepository(loc)
	case "mem":
		repository, err = rf.createMemoryRepository(loc)
	default:
		return nil, interfaces.NewRepositoryError("RepositoryFor", location,
			fmt.Sprintf("unsupported repository scheme %q", loc.Scheme), interfaces.ErrUnknownRepository)
	}
	if err != nil {
		return nil, err
	}

	rf.repositories[location] = repository
	return repository, nil
}

// createFileRepository creates a filesystem repository.
// URI format: file:///absolute/path or file://./relative/path
func (rf *RepositoryFactory) createFileRepository(loc interfaces.RepositoryLocation) (interfaces.FragmentRepository, error) {
	rf.log.Debug("Creating file repository", slog.String("uri", loc.Raw))

	path := loc.Path
	if loc.Host != "" {
		path = loc.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, interfaces.NewRepositoryError("RepositoryFor", loc.Raw, "empty path in file URI", interfaces.ErrInvalidLocationURI)
	}

	return NewFileRepository(loc.Raw, filepath.Clean(path), rf.log)
}

// createS3Repository creates an S3 or S3-compatible repository.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
// Without embedded credentials the default AWS credential chain is used.
func (rf *RepositoryFactory) createS3Repository(loc interfaces.RepositoryLocation) (interfaces.FragmentRepository, error) {
	rf.log.Debug("Creating S3 repository", slog.String("bucket", loc.Host))

	if loc.Host == "" {
		return nil, interfaces.NewRepositoryError("RepositoryFor", loc.Raw, "missing bucket in S3 URI", interfaces.ErrInvalidLocationURI)
	}

	opts := S3Options{
		Region:    loc.GetParam("region"),
		Endpoint:  loc.GetParam("endpoint"),
		PathStyle: loc.GetParamBool("path_style"),
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if loc.User != nil {
		opts.AccessKey = loc.User.Username()
		opts.SecretKey, _ = loc.User.Password()
	}

	sessionKey := strings.Join([]string{opts.Region, opts.Endpoint, opts.AccessKey, fmt.Sprint(opts.PathStyle)}, "|")
	sess, ok := rf.s3Sessions[sessionKey]
	if !ok {
		var err error
		sess, err = NewS3Session(opts)
		if err != nil {
			return nil, interfaces.NewRepositoryError("RepositoryFor", loc.Raw, "failed to create AWS session", err)
		}
		rf.s3Sessions[sessionKey] = sess
	}

	return NewS3Repository(loc.Raw, sess, loc.Host, strings.Trim(loc.Path, "/"), rf.log), nil
}

// createMinioRepository creates a repository on a MinIO server.
// URI format: minio://[ACCESS_KEY:SECRET_KEY@]host:port/bucket/prefix?secure=true
func (rf *RepositoryFactory) createMinioRepository(loc interfaces.RepositoryLocation) (interfaces.FragmentRepository, error) {
	rf.log.Debug("Creating MinIO repository", slog.String("endpoint", loc.Host))

	bucket, prefix, _ := strings.Cut(strings.Trim(loc.Path, "/"), "/")
	if loc.Host == "" || bucket == "" {
		return nil, interfaces.NewRepositoryError("RepositoryFor", loc.Raw,
			"expected minio://host:port/bucket[/prefix]", interfaces.ErrInvalidLocationURI)
	}

	var accessKey, secretKey string
	if loc.User != nil {
		accessKey = loc.User.Username()
		secretKey, _ = loc.User.Password()
	}
	secure := loc.GetParamBool("secure")

	clientKey := strings.Join([]string{loc.Host, accessKey, fmt.Sprint(secure)}, "|")
	client, ok := rf.minioClients[clientKey]
	if !ok {
		var err error
		client, err = NewMinioClient(loc.Host, accessKey, secretKey, secure)
		if err != nil {
			return nil, interfaces.NewRepositoryError("RepositoryFor", loc.Raw, "failed to create MinIO client", err)
		}
		rf.minioClients[clientKey] = client
	}

	return NewMinioRepository(loc.Raw, client, bucket, prefix, rf.log), nil
}

// createIPFSRepository creates a repository in an IPFS node's mutable file system.
// URI format: ipfs://host:port/mfs/dir?timeout=30s
func (rf *RepositoryFactory) createIPFSRepository(loc interfaces.RepositoryLocation) (interfaces.FragmentRepository, error) {
	rf.log.Debug("Creating IPFS repository", slog.String("uri", loc.Raw))

	host := loc.Host
	if host == "" {
		return nil, interfaces.NewRepositoryError("RepositoryFor", loc.Raw, "missing IPFS API host", interfaces.ErrInvalidLocationURI)
	}
	if !strings.Contains(host, ":") {
		host += ":5001" // Default IPFS API port
	}

	dir := "/" + strings.Trim(loc.Path, "/")
	timeout := loc.GetParam("timeout")
	if timeout == "" {
		timeout = "30s"
	}

	return NewIPFSRepository(loc.Raw, host, dir, timeout, rf.log)
}

// createMirrorRepository creates a repository mirroring fragments across nested locations.
// URI format: mirror://?location=<escaped URI>&location=<escaped URI>
func (rf *RepositoryFactory) createMirrorRepository(loc interfaces.RepositoryLocation) (interfaces.FragmentRepository, error) {
	rf.log.Debug("Creating mirror repository", slog.String("uri", loc.Raw))

	locations := loc.Query["location"]
	if len(locations) == 0 {
		return nil, interfaces.NewRepositoryError("RepositoryFor", loc.Raw, "mirror needs at least one location", interfaces.ErrInvalidLocationURI)
	}

	mirrors := make([]interfaces.FragmentRepository, 0, len(locations))
	for _, nested := range locations {
		repository, err := rf.repositoryForLocked(nested)
		if err != nil {
			return nil, err
		}
		mirrors = append(mirrors, repository)
	}

	return NewMirrorRepository(loc.Raw, mirrors, rf.log), nil
}

// createMemoryRepository returns the process-local repository named by the host.
// URI format: mem://name
func (rf *RepositoryFactory) createMemoryRepository(loc interfaces.RepositoryLocation) (interfaces.FragmentRepository, error) {
	name := loc.Host + loc.Path
	if name == "" {
		return nil, interfaces.NewRepositoryError("RepositoryFor", loc.Raw, "missing memory repository name", interfaces.ErrInvalidLocationURI)
	}

	repository, ok := rf.memory[name]
	if !ok {
		repository = NewMemoryRepository(loc.Raw)
		rf.memory[name] = repository
	}
	return repository, nil
}
