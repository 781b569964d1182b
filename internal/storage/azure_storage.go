package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobArchiver persists the original uploaded image for audit and reprocessing.
// Archiving is best effort; callers log failures and continue the scan.
type BlobArchiver interface {
	Archive(ctx context.Context, name string, data []byte) (string, error)
}

type azureArchiver struct {
	client    *azblob.Client
	account   string
	container string
}

func NewAzureArchiver(accountName, accountKey, container string) (BlobArchiver, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &azureArchiver{client: client, account: accountName, container: container}, nil
}

// Archive uploads the raw bytes under a date-prefixed blob name and returns
// the blob URL.
func (s *azureArchiver) Archive(ctx context.Context, name string, data []byte) (string, error) {
	blobName := fmt.Sprintf("%s/%s", time.Now().UTC().Format("2006-01-02"), name)

	_, err := s.client.UploadBuffer(ctx, s.container, blobName, data, nil)
	if err != nil {
		return "", fmt.Errorf("archive upload failed: %w", err)
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", s.account, s.container, blobName), nil
}
