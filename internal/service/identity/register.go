package identity

import (
	"google.golang.org/grpc"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/mail"
	"github.com/oggyb/recipebox/internal/server"
	"github.com/oggyb/recipebox/internal/storage"
)

const ServiceName = "recipebox.v1.AccountService"

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServer)(nil),
	Methods: []grpc.MethodDesc{
		server.UnaryMethod(ServiceName, "Register", AccountServer.Register),
		server.UnaryMethod(ServiceName, "Verify", AccountServer.Verify),
		server.UnaryMethod(ServiceName, "ResendVerification", AccountServer.ResendVerification),
		server.UnaryMethod(ServiceName, "Login", AccountServer.Login),
		server.UnaryMethod(ServiceName, "GetProfile", AccountServer.GetProfile),
		server.UnaryMethod(ServiceName, "UpdateSettings", AccountServer.UpdateSettings),
	},
	Metadata: "recipebox/v1/account",
}

// Registrar ties the Account service into the gRPC server
type Registrar struct {
	appCtx     *app.AppContext
	dispatcher mail.Dispatcher
	store      storage.ObjectStore
}

// NewRegistrar creates a new Registrar for the Account service
func NewRegistrar(appCtx *app.AppContext, dispatcher mail.Dispatcher, store storage.ObjectStore) *Registrar {
	return &Registrar{appCtx: appCtx, dispatcher: dispatcher, store: store}
}

// Register attaches the Account service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&serviceDesc, NewHandler(NewService(r.appCtx), r.dispatcher, r.store))
}
