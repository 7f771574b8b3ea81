package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockBlobStore is an in-memory BlobStore implementation for testing
type MockBlobStore struct {
	objects map[string]*BlobObject // map of file id to stored object
	mu      sync.RWMutex
}

// NewMockBlobStore creates a new mock blob store
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{
		objects: make(map[string]*BlobObject),
	}
}

// SetAsMockForTesting sets this mock as the global blob store instance for testing
func (m *MockBlobStore) SetAsMockForTesting() {
	SetBlobStore(m)
}

// Put stores bytes in the mock storage under a fresh file id
func (m *MockBlobStore) Put(ctx context.Context, data []byte, contentType string, metadata map[string]string) (string, error) {
	fileID := uuid.NewString()

	stored := make([]byte, len(data))
	copy(stored, data)
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	m.mu.Lock()
	m.objects[fileID] = &BlobObject{Data: stored, ContentType: contentType, Metadata: meta}
	m.mu.Unlock()

	return fileID, nil
}

// Get retrieves an object from the mock storage
func (m *MockBlobStore) Get(ctx context.Context, fileID string) (*BlobObject, error) {
	m.mu.RLock()
	obj, exists := m.objects[fileID]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrBlobNotFound
	}
	return obj, nil
}

// FindByMetadata returns the id of the first object carrying the metadata pair
func (m *MockBlobStore) FindByMetadata(ctx context.Context, key, value string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, obj := range m.objects {
		if obj.Metadata[key] == value {
			return id, nil
		}
	}
	return "", ErrBlobNotFound
}

// PresignedURL returns a mock presigned URL
func (m *MockBlobStore) PresignedURL(fileID string) (string, error) {
	if fileID == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.objects[fileID]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("file not found in mock blob store: %s", fileID)
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/uploads/%s?mock=true", fileID), nil
}

// Delete removes an object from the mock storage
func (m *MockBlobStore) Delete(ctx context.Context, fileID string) error {
	m.mu.Lock()
	delete(m.objects, fileID)
	m.mu.Unlock()
	return nil
}

// Seed stores an object under a caller-chosen id (for testing assertions)
func (m *MockBlobStore) Seed(fileID string, data []byte, contentType string, metadata map[string]string) {
	m.mu.Lock()
	m.objects[fileID] = &BlobObject{Data: data, ContentType: contentType, Metadata: metadata}
	m.mu.Unlock()
}

// FileExists checks if an object exists in mock storage
func (m *MockBlobStore) FileExists(fileID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.objects[fileID]
	return exists
}

// Clear removes all objects from mock storage
func (m *MockBlobStore) Clear() {
	m.mu.Lock()
	m.objects = make(map[string]*BlobObject)
	m.mu.Unlock()
}
