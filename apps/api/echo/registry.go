package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/campoalegre/unibus/core/registry"
)

type registryApi struct {
	svc *registry.Service
}

func registerRegistryAPI(g *echo.Group, svc *registry.Service, validate *validator.Validate) {
	api := registryApi{svc: svc}
	perm := permissionMiddleware

	inst := g.Group("/institutions")
	inst.GET("", queryHandler(svc.QueryInstitutions), perm(permInstitutionsRead))
	inst.POST("", createHandler(validate, svc.CreateInstitution), perm(permInstitutionsWrite))
	inst.GET("/:id", getHandler(svc.GetInstitution), perm(permInstitutionsRead))
	inst.PUT("/:id", updateHandler(validate, svc.UpdateInstitution), perm(permInstitutionsWrite))
	inst.DELETE("/:id", deactivateHandler(svc.DeactivateInstitution), perm(permInstitutionsWrite))

	bps := g.Group("/boarding-points")
	bps.GET("", queryHandler(svc.QueryBoardingPoints), perm(permBoardingPointsRead))
	bps.POST("", createHandler(validate, svc.CreateBoardingPoint), perm(permBoardingPointsWrite))
	bps.GET("/:id", getHandler(svc.GetBoardingPoint), perm(permBoardingPointsRead))
	bps.PUT("/:id", updateHandler(validate, svc.UpdateBoardingPoint), perm(permBoardingPointsWrite))
	bps.DELETE("/:id", deactivateHandler(svc.DeactivateBoardingPoint), perm(permBoardingPointsWrite))

	students := g.Group("/students")
	students.GET("", queryHandler(svc.QueryStudents), perm(permStudentsRead))
	students.POST("", createHandler(validate, svc.CreateStudent), perm(permStudentsWrite))
	students.GET("/:id", getHandler(svc.GetStudent), perm(permStudentsRead))
	students.PUT("/:id", updateHandler(validate, svc.UpdateStudent), perm(permStudentsWrite))
	students.DELETE("/:id", deactivateHandler(svc.DeactivateStudent), perm(permStudentsDelete))
	students.POST("/:id/biometric-enrollment", api.enrollBiometric, perm(permStudentsEnrollBiometric))
	students.DELETE("/:id/biometric-enrollment", api.removeBiometric, perm(permStudentsEnrollBiometric))

	drivers := g.Group("/drivers")
	drivers.GET("", queryHandler(svc.QueryDrivers), perm(permDriversRead))
	drivers.POST("", createHandler(validate, svc.CreateDriver), perm(permDriversWrite))
	drivers.GET("/:id", getHandler(svc.GetDriver), perm(permDriversRead))
	drivers.PUT("/:id", updateHandler(validate, svc.UpdateDriver), perm(permDriversWrite))
	drivers.DELETE("/:id", deactivateHandler(svc.DeactivateDriver), perm(permDriversWrite))

	vehicles := g.Group("/vehicles")
	vehicles.GET("", queryHandler(svc.QueryVehicles), perm(permVehiclesRead))
	vehicles.POST("", createHandler(validate, svc.CreateVehicle), perm(permVehiclesWrite))
	vehicles.GET("/:id", getHandler(svc.GetVehicle), perm(permVehiclesRead))
	vehicles.PUT("/:id", updateHandler(validate, svc.UpdateVehicle), perm(permVehiclesWrite))
	vehicles.DELETE("/:id", deactivateHandler(svc.DeactivateVehicle), perm(permVehiclesWrite))

	routes := g.Group("/routes")
	routes.GET("", queryHandler(svc.QueryRoutes), perm(permRoutesRead))
	routes.POST("", createHandler(validate, svc.CreateRoute), perm(permRoutesWrite))
	routes.GET("/:id", getHandler(svc.GetRoute), perm(permRoutesRead))
	routes.PUT("/:id", updateHandler(validate, svc.UpdateRoute), perm(permRoutesWrite))
	routes.DELETE("/:id", deactivateHandler(svc.DeactivateRoute), perm(permRoutesWrite))
}

func (api registryApi) enrollBiometric(ctx echo.Context) error {
	return api.setBiometric(ctx, true)
}

func (api registryApi) removeBiometric(ctx echo.Context) error {
	return api.setBiometric(ctx, false)
}

func (api registryApi) setBiometric(ctx echo.Context, enrolled bool) error {
	st, err := api.svc.SetBiometricEnrollment(ctx.Request().Context(), ctx.Param("id"), enrolled)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}
