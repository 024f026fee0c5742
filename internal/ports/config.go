package ports

import (
	"ajax-cloud-bridge/internal/domain/model"
	"context"
)

type CredentialsRepository interface {
	Get(ctx context.Context) (*model.Credentials, error)
	Save(ctx context.Context, creds *model.Credentials) error
}
