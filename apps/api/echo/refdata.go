package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-dashboard/core/cascade"
	"github.com/trezcool/masomo-dashboard/core/forms"
)

type refDataApi struct {
	catalog  *forms.Catalog
	validate *validator.Validate
}

func registerRefDataAPI(g *echo.Group, jwt echo.MiddlewareFunc, catalog *forms.Catalog, validate *validator.Validate) {
	api := refDataApi{catalog: catalog, validate: validate}

	rg := g.Group("/refdata", jwt)
	rg.GET("", api.levels)
	rg.GET("/:level", api.options)
}

func (api *refDataApi) levels(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.catalog.Levels())
}

// options lists the options of a level under ?parent=. The refdata client of `admin browse` reads it.
func (api *refDataApi) options(ctx echo.Context) error {
	level, err := levelKey(ctx, api.validate)
	if err != nil {
		return err
	}
	var q OptionsQuery
	q.Bind(ctx)

	options, err := api.catalog.Options(ctx.Request().Context(), level, q.Parent, q.Ordering)
	if err != nil {
		return err
	}
	if options == nil {
		options = []cascade.Option{}
	}
	return ctx.JSON(http.StatusOK, options)
}
