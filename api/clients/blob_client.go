package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/ida-persistence-engine/interfaces"
)

// FragmentPlacement mirrors the fragment listing entries of the server.
type FragmentPlacement struct {
	FragmentNumber     int    `json:"fragment_number"`
	RepositoryLocation string `json:"repository_location"`
}

// BlobClient talks to the blob API of an idaserver.
type BlobClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ interfaces.PersistenceService = (*BlobClient)(nil)

// NewBlobClient creates a client for the server at baseURL
// (e.g. "http://localhost:8080"). A zero timeout defaults to 30 seconds.
func NewBlobClient(baseURL string, timeout time.Duration) *BlobClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &BlobClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *BlobClient) blobURL(dataID string) string {
	return c.baseURL + "/api/blobs/" + url.PathEscape(dataID)
}

// Save uploads data under dataID.
func (c *BlobClient) Save(ctx context.Context, dataID string, data []byte) error {
	resp, err := c.do(ctx, http.MethodPut, c.blobURL(dataID), data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return responseError("save", dataID, resp)
	}
	return nil
}

// Create uploads data under a server-generated data ID and returns it.
func (c *BlobClient) Create(ctx context.Context, data []byte) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/blobs", data)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", responseError("create", "", resp)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode create response: %w", err)
	}
	return result.ID, nil
}

// Load downloads the reconstructed blob.
func (c *BlobClient) Load(ctx context.Context, dataID string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, c.blobURL(dataID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError("load", dataID, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", dataID, err)
	}
	return data, nil
}

// Delete removes the blob and returns the number of fragments deleted.
func (c *BlobClient) Delete(ctx context.Context, dataID string) (int, error) {
	resp, err := c.do(ctx, http.MethodDelete, c.blobURL(dataID), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, responseError("delete", dataID, resp)
	}

	var result struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode delete response: %w", err)
	}
	return result.Deleted, nil
}

// Fragments lists where the fragments of a blob are stored.
func (c *BlobClient) Fragments(ctx context.Context, dataID string) ([]FragmentPlacement, error) {
	resp, err := c.do(ctx, http.MethodGet, c.blobURL(dataID)+"/fragments", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError("list fragments", dataID, resp)
	}

	var placements []FragmentPlacement
	if err := json.NewDecoder(resp.Body).Decode(&placements); err != nil {
		return nil, fmt.Errorf("failed to decode fragment listing: %w", err)
	}
	return placements, nil
}

func (c *BlobClient) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", strings.ToLower(method), err)
	}
	return resp, nil
}

// responseError turns a non-success response into an error, wrapping the
// sentinel matching the status code.
func responseError(op, dataID string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusNotFound:
		sentinel = interfaces.ErrInsufficientFragments
	case http.StatusBadGateway:
		sentinel = interfaces.ErrNotFullySaved
	}

	if sentinel != nil {
		return fmt.Errorf("%s %q failed with code %d: %w: %s", op, dataID, resp.StatusCode, sentinel, msg)
	}
	return fmt.Errorf("%s %q failed with code %d: %s", op, dataID, resp.StatusCode, msg)
}
