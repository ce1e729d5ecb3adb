package recipes

import (
	"google.golang.org/grpc"

	"github.com/oggyb/recipebox/internal/app"
	"github.com/oggyb/recipebox/internal/server"
	"github.com/oggyb/recipebox/internal/storage"
)

const ServiceName = "recipebox.v1.RecipeService"

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecipeServer)(nil),
	Methods: []grpc.MethodDesc{
		server.UnaryMethod(ServiceName, "CreateRecipe", RecipeServer.CreateRecipe),
		server.UnaryMethod(ServiceName, "UpdateRecipe", RecipeServer.UpdateRecipe),
		server.UnaryMethod(ServiceName, "DeleteRecipe", RecipeServer.DeleteRecipe),
		server.UnaryMethod(ServiceName, "QueryRecipes", RecipeServer.QueryRecipes),
		server.UnaryMethod(ServiceName, "GetRecipe", RecipeServer.GetRecipe),
		server.UnaryMethod(ServiceName, "ListTags", RecipeServer.ListTags),
	},
	Metadata: "recipebox/v1/recipe",
}

// Registrar ties the Recipe service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
	store  storage.ObjectStore
}

func NewRegistrar(appCtx *app.AppContext, store storage.ObjectStore) *Registrar {
	return &Registrar{appCtx: appCtx, store: store}
}

func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&serviceDesc, NewHandler(NewService(r.appCtx), r.store))
}
