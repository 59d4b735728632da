package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-dashboard/core/cascade"
	"github.com/trezcool/masomo-dashboard/core/forms"
)

type formsApi struct {
	mgr      *forms.Manager
	validate *validator.Validate
}

func registerFormsAPI(g *echo.Group, jwt echo.MiddlewareFunc, mgr *forms.Manager, validate *validator.Validate) {
	api := formsApi{mgr: mgr, validate: validate}

	g.GET("/forms", api.definitions)
	g.POST("/forms/:form/sessions", api.open, jwt)

	// session endpoints
	sg := g.Group("/sessions/:id", jwt, sessionMiddleware(mgr))
	sg.GET("", api.retrieve)
	sg.DELETE("", api.close)
	sg.POST("/hydrate", api.hydrate)
	sg.POST("/reset", api.reset)

	lg := sg.Group("/levels/:level")
	lg.GET("", api.level)
	lg.PUT("", api.selectValue)
	lg.POST("/seed", api.seed)
	lg.POST("/retry", api.retry)
}

// Handlers

func (api *formsApi) definitions(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, forms.Definitions)
}

func (api *formsApi) open(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sess, err := api.mgr.Open(ctx.Param("form"), claims.Identity())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sess.View())
}

func (api *formsApi) retrieve(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.View())
}

func (api *formsApi) close(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = api.mgr.Close(sess.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// level returns the state of one level. Reading the root of a lazy form loads its options.
func (api *formsApi) level(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	key, err := levelKey(ctx, api.validate)
	if err != nil {
		return err
	}
	if key == sess.Engine.Graph().Root().Key {
		sess.Engine.LoadRoot()
	}
	state, ok := sess.Engine.State(key)
	if !ok {
		return errors.Wrapf(cascade.ErrUnknownLevel, "%q", key)
	}
	return ctx.JSON(http.StatusOK, state)
}

func (api *formsApi) selectValue(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	key, err := levelKey(ctx, api.validate)
	if err != nil {
		return err
	}
	var data SelectRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SelectRequest")
	}
	if err = sess.Engine.Select(key, data.Value); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.View())
}

func (api *formsApi) seed(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	key, err := levelKey(ctx, api.validate)
	if err != nil {
		return err
	}
	var data SeedRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SeedRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	if err = sess.Engine.Seed(key, data.Value, data.Options); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.View())
}

func (api *formsApi) retry(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	key, err := levelKey(ctx, api.validate)
	if err != nil {
		return err
	}
	if err = sess.Engine.Retry(key); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.View())
}

// hydrate restores a saved chain, eg. the region of a student being edited.
func (api *formsApi) hydrate(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data HydrateRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to HydrateRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	if err = sess.Engine.Hydrate(ctx.Request().Context(), data.Values...); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.View())
}

// reset clears the whole chain. Identity-rooted forms keep their root.
func (api *formsApi) reset(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data ResetRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetRequest")
	}
	root := data.RootValue
	if sess.Form.IdentityRoot {
		root = sess.Identity.ID
	}
	sess.Engine.Reset(root)
	return ctx.JSON(http.StatusOK, sess.View())
}

// levelKey returns the :level path param once validated.
func levelKey(ctx echo.Context, validate *validator.Validate) (string, error) {
	var p LevelParam
	p.Bind(ctx)
	if err := validate.Struct(p); err != nil {
		return "", err
	}
	return p.Level, nil
}
