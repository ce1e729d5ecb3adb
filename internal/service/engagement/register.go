package engagement

import (
	"google.golang.org/grpc"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/server"
)

const ServiceName = "recipebox.v1.EngagementService"

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngagementServer)(nil),
	Methods: []grpc.MethodDesc{
		server.UnaryMethod(ServiceName, "ToggleLike", EngagementServer.ToggleLike),
		server.UnaryMethod(ServiceName, "HasLiked", EngagementServer.HasLiked),
		server.UnaryMethod(ServiceName, "ToggleFollow", EngagementServer.ToggleFollow),
		server.UnaryMethod(ServiceName, "IsFollowing", EngagementServer.IsFollowing),
		server.UnaryMethod(ServiceName, "SubmitReview", EngagementServer.SubmitReview),
		server.UnaryMethod(ServiceName, "ListReviews", EngagementServer.ListReviews),
		server.UnaryMethod(ServiceName, "ListFollowers", EngagementServer.ListFollowers),
	},
	Metadata: "recipebox/v1/engagement",
}

// Registrar ties the Engagement service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&serviceDesc, NewHandler(NewService(r.appCtx)))
}
