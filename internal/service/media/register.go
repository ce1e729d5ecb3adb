package media

import (
	"context"

	"google.golang.org/grpc"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/server"
	"github.com/oggyb/recipebox/internal/storage"
)

const ServiceName = "recipebox.v1.MediaService"

// MediaServer is the recipebox.v1.MediaService API.
type MediaServer interface {
	UploadImage(context.Context, *UploadImageRequest) (*UploadImageResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MediaServer)(nil),
	Methods: []grpc.MethodDesc{
		server.UnaryMethod(ServiceName, "UploadImage", MediaServer.UploadImage),
	},
	Metadata: "recipebox/v1/media",
}

type Registrar struct {
	appCtx *app.AppContext
	store  storage.ObjectStore
}

func NewRegistrar(appCtx *app.AppContext, store storage.ObjectStore) *Registrar {
	return &Registrar{appCtx: appCtx, store: store}
}

func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&serviceDesc, NewService(r.appCtx, r.store))
}
