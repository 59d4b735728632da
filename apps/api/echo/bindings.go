package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/cascade"
)

var (
	levelParam    = "level"
	parentParam   = "parent"
	orderingParam = "ordering"
)

// LevelParam holds the :level path param of the level endpoints.
type LevelParam struct {
	Level string `json:"level" validate:"required,levelkey"`
}

func (p *LevelParam) Bind(ctx echo.Context) {
	p.Level = ctx.Param(levelParam)
}

// OptionsQuery holds the query params of an options listing, eg. ?parent=3&ordering=-name
type OptionsQuery struct {
	Parent   string
	Ordering string
}

func (q *OptionsQuery) Bind(ctx echo.Context) {
	q.Parent = core.CleanString(ctx.QueryParam(parentParam))
	q.Ordering = ctx.QueryParam(orderingParam)
}

type (
	SelectRequest struct {
		Value string `json:"value"` // empty clears the level
	}

	SeedRequest struct {
		Value   string           `json:"value"`
		Options []cascade.Option `json:"options" validate:"dive"`
	}

	HydrateRequest struct {
		Values []string `json:"values" validate:"required,min=1"`
	}

	ResetRequest struct {
		RootValue string `json:"root_value"`
	}
)
