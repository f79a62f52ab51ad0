package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rapor-tpq/rapor/core/student"
	"github.com/rapor-tpq/rapor/core/user"
)

var errStudentNotFoundInCtx = errors.New("student object not found in echo.Context")

type studentApi struct {
	svc      *student.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := studentApi{
		svc:      deps.StudentSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/students", jwt)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("", api.query)

	// detail endpoints
	dg := sg.Group("/:id", studentAccessMiddleware(api.svc, api.usrSvc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() {
		// parents only ever see their own children
		filter.ParentID = ctxUsr.ID
	}

	students, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(s, api.validate); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// studentAccessMiddleware loads the `:id` Student into "object".
// Admins may access every student, parents only their own children.
func studentAccessMiddleware(svc *student.Service, usrSvc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, usrSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			id, ok := pathID(ctx)
			if !ok {
				return errHttpNotFound
			}
			s, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				return errors.Wrap(err, "finding student by ID")
			}
			if !ctxUsr.IsAdmin() && s.ParentID != ctxUsr.ID {
				return errHttpForbidden
			}
			ctx.Set("object", s)
			return next(ctx)
		}
	}
}
