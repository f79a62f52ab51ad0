package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rapor-tpq/rapor/core/assessment"
	"github.com/rapor-tpq/rapor/core/classifier"
)

type assessmentApi struct {
	model    *classifier.Service
	validate *validator.Validate
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := assessmentApi{
		model:    deps.Classifier,
		validate: deps.Validate,
	}

	ag := g.Group("/assessment", jwt)
	ag.POST("/categorize", api.categorize)
	ag.POST("/predict", api.predict)
	ag.GET("/model", api.modelInfo, adminMiddleware())
}

// bindScores binds and validates a full ScoreVector: no subject may be left out.
func (api *assessmentApi) bindScores(ctx echo.Context) (assessment.Scores, error) {
	var data assessment.ScoresInput
	if err := ctx.Bind(&data); err != nil {
		return assessment.Scores{}, errors.Wrap(err, "binding to ScoresInput")
	}
	if err := api.validate.Struct(data); err != nil {
		return assessment.Scores{}, err
	}
	return data.Scores(), nil
}

// Handlers

func (api *assessmentApi) categorize(ctx echo.Context) error {
	scores, err := api.bindScores(ctx)
	if err != nil {
		return err
	}
	avg, cat := assessment.Categorize(scores)
	return ctx.JSON(http.StatusOK, CategorizeResponse{Average: avg, Category: cat})
}

func (api *assessmentApi) predict(ctx echo.Context) error {
	scores, err := api.bindScores(ctx)
	if err != nil {
		return err
	}
	cat, err := api.model.Predict(scores)
	if err != nil {
		return errors.Wrap(err, "predicting category")
	}
	return ctx.JSON(http.StatusOK, PredictResponse{Category: cat})
}

func (api *assessmentApi) modelInfo(ctx echo.Context) error {
	info, err := api.model.Info()
	if err != nil {
		return errors.Wrap(err, "getting model info")
	}
	return ctx.JSON(http.StatusOK, info)
}
