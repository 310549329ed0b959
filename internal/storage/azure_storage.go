package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureStore uploads outputs as block blobs into one container
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore connects with a shared key
func NewAzureStore(accountName, accountKey, container string) (*AzureStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net/", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AzureStore{client: client, container: container}, nil
}

// EnsureContainer creates the container unless it already exists
func (s *AzureStore) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", s.container, err)
	}
	return nil
}

// Save uploads data as container/name
func (s *AzureStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if _, err := s.client.UploadBuffer(ctx, s.container, name, data, nil); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return blobURL(s.client.URL(), s.container, name)
}

// Fetch downloads a previously stored output
func (s *AzureStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	resp, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOutputNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	retryReader := resp.NewRetryReader(ctx, nil)
	defer retryReader.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(retryReader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Backend returns the backend identifier
func (s *AzureStore) Backend() string {
	return "azure"
}

func blobURL(serviceURL, container, name string) (string, error) {
	u, err := url.JoinPath(serviceURL, container, name)
	if err != nil {
		return "", fmt.Errorf("invalid blob URL: %w", err)
	}
	return u, nil
}
