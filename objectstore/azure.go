package objectstore

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureFetcher reads blobs from one Azure Blob Storage container.
type AzureFetcher struct {
	client    *azblob.Client
	container string
}

// Compile-time check.
var _ Fetcher = (*AzureFetcher)(nil)

// NewAzureFetcher creates a fetcher with shared-key credentials.
func NewAzureFetcher(accountName, accountKey, container string) (*AzureFetcher, error) {
	if container == "" {
		return nil, fmt.Errorf("azure container is required")
	}
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &AzureFetcher{client: client, container: container}, nil
}

// Get downloads the whole blob.
func (f *AzureFetcher) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := f.client.DownloadStream(ctx, f.container, key, nil)
	if err != nil {
		return nil, fmt.Errorf("azure download %s/%s: %w", f.container, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read azure blob %s/%s: %w", f.container, key, err)
	}
	return data, nil
}
