// Package media accepts image uploads and hands back the opaque reference
// that accounts and recipes store.
package media

import (
	"context"
	"fmt"

	"github.com/oggyb/recipebox/internal/app"
	svcErr "github.com/oggyb/recipebox/internal/errors"
	"github.com/oggyb/recipebox/internal/storage"
)

// MaxImageBytes stays under gRPC's default 4 MiB message limit after base64.
const MaxImageBytes = 2 << 20

var prefixes = map[string]string{
	"avatar": "avatars",
	"recipe": "recipes",
}

type Service struct {
	appCtx *app.AppContext
	store  storage.ObjectStore
}

func NewService(appCtx *app.AppContext, store storage.ObjectStore) *Service {
	return &Service{appCtx: appCtx, store: store}
}

type UploadImageRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=avatar recipe"`
	ContentType string `json:"content_type" validate:"required"`
	Data        []byte `json:"data" validate:"required"`
}

type UploadImageResponse struct {
	Ref string `json:"ref"`
}

// UploadImage stores the bytes and returns their reference.
func (s *Service) UploadImage(ctx context.Context, req *UploadImageRequest) (*UploadImageResponse, error) {
	if err := s.appCtx.Validator.Validate(req); err != nil {
		return nil, svcErr.Map(err)
	}
	if !storage.AllowedContentType(req.ContentType) {
		return nil, svcErr.Map(svcErr.InvalidWithDetails("validation failed", map[string]string{
			"content_type": "must be one of image/jpeg, image/png, image/webp, image/gif",
		}))
	}
	if len(req.Data) > MaxImageBytes {
		return nil, svcErr.Map(svcErr.InvalidWithDetails("validation failed", map[string]string{
			"data": fmt.Sprintf("must be at most %d bytes", MaxImageBytes),
		}))
	}

	ref, err := s.store.Put(ctx, prefixes[req.Kind], req.ContentType, req.Data)
	if err != nil {
		return nil, svcErr.Map(svcErr.Internal("store image", err))
	}
	s.appCtx.Logger.Info("image uploaded", "ref", ref, "bytes", len(req.Data))
	return &UploadImageResponse{Ref: ref}, nil
}
