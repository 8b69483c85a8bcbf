package clients

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ruteri/ida-persistence-engine/executor"
	"github.com/ruteri/ida-persistence-engine/httpserver"
	"github.com/ruteri/ida-persistence-engine/ida"
	"github.com/ruteri/ida-persistence-engine/interfaces"
	"github.com/ruteri/ida-persistence-engine/metadata"
	"github.com/ruteri/ida-persistence-engine/persistence"
	"github.com/ruteri/ida-persistence-engine/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlobServer(t *testing.T) (*httptest.Server, []*storage.MemoryRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	algorithm, err := ida.New(ida.ShamirName, 4, 1)
	require.NoError(t, err)

	var memories []*storage.MemoryRepository
	var repositories []interfaces.FragmentRepository
	for i := 0; i < 4; i++ {
		repository := storage.NewMemoryRepository(fmt.Sprintf("mem://client-%d", i))
		memories = append(memories, repository)
		repositories = append(repositories, repository)
	}

	pool := executor.New(4, logger)
	t.Cleanup(pool.Close)

	store := metadata.NewMemoryStore()
	service, err := persistence.NewService(persistence.Options{
		Repositories:  repositories,
		MetadataStore: store,
		Algorithm:     algorithm,
		Executor:      pool,
		Logger:        logger,
	})
	require.NoError(t, err)

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{Log: logger}, httpserver.NewHandler(service, store, 1024, logger))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, memories
}

func TestBlobClient(t *testing.T) {
	ts, memories := newBlobServer(t)
	client := NewBlobClient(ts.URL+"/", 0)
	ctx := context.Background()

	require.NoError(t, client.Save(ctx, "quarterly report", []byte("numbers")))

	data, err := client.Load(ctx, "quarterly report")
	require.NoError(t, err)
	assert.Equal(t, "numbers", string(data))

	placements, err := client.Fragments(ctx, "quarterly report")
	require.NoError(t, err)
	require.Len(t, placements, 4)
	assert.Equal(t, "mem://client-3", placements[3].RepositoryLocation)

	id, err := client.Create(ctx, []byte("generated"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	data, err = client.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "generated", string(data))

	deleted, err := client.Delete(ctx, "quarterly report")
	require.NoError(t, err)
	assert.Equal(t, 4, deleted)

	for _, repository := range memories {
		assert.Equal(t, []string{interfaces.FragmentName(id)}, repository.Names())
	}

	_, err = client.Load(ctx, "quarterly report")
	assert.ErrorIs(t, err, interfaces.ErrInsufficientFragments)

	_, err = client.Fragments(ctx, "quarterly report")
	assert.ErrorIs(t, err, interfaces.ErrInsufficientFragments)
}

func TestBlobClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{
			name:     "not fully saved",
			status:   http.StatusBadGateway,
			body:     `{"error":"1 of 4 fragments failed"}`,
			sentinel: interfaces.ErrNotFullySaved,
			message:  "1 of 4 fragments failed",
		},
		{
			name:    "plain text failure",
			status:  http.StatusInternalServerError,
			body:    "boom",
			message: "failed with code 500: boom",
		},
		{
			name:    "too large",
			status:  http.StatusRequestEntityTooLarge,
			body:    `{"error":"blob exceeds 1024 bytes"}`,
			message: "blob exceeds 1024 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			err := NewBlobClient(ts.URL, 0).Save(context.Background(), "blob", []byte("data"))
			require.Error(t, err)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestBlobClient_RejectsOversizedBlobs(t *testing.T) {
	ts, _ := newBlobServer(t)

	err := NewBlobClient(ts.URL, 0).Save(context.Background(), "big", make([]byte, 2048))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "413")
}
