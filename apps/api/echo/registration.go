package echoapi

import (
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/littleoaks/schoolops/core"
	"github.com/littleoaks/schoolops/core/registration"
)

const enrollmentDateLayout = "2006-01-02"

type registrationApi struct {
	svc        *registration.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerRegistrationAPI(
	g *echo.Group,
	svc *registration.Service,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := registrationApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	rg := g.Group("/registrations")
	rg.GET("", api.query)

	dg := rg.Group("/:source/:id", sourceMiddleware())
	dg.GET("", api.retrieve)
	dg.POST("/approve", api.approve)
	dg.POST("/reject", api.reject)
	dg.POST("/verify-payment", api.verifyPayment)
}

// sourceMiddleware rejects unknown origin channels before any handler runs.
func sourceMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			src, ok := registration.ParseSource(ctx.Param("source"))
			if !ok {
				return errHttpUnknownSource
			}
			ctx.Set("source", src)
			return next(ctx)
		}
	}
}

func contextSource(ctx echo.Context) registration.Source {
	src, _ := ctx.Get("source").(registration.Source)
	return src
}

// Handlers

func (api *registrationApi) query(ctx echo.Context) error {
	var query RegistrationQueryRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to RegistrationQueryRequest")
	}
	if err := query.Validate(api.validate); err != nil {
		return err
	}

	regs, err := api.svc.List(ctx.Request().Context(), query.OrganizationID, registration.QueryFilter{
		Status: registration.Status(query.Status),
		Search: query.Search,
	})
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	if regs == nil {
		regs = []registration.Registration{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *registrationApi) retrieve(ctx echo.Context) error {
	reg, err := api.svc.Get(ctx.Request().Context(), contextSource(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, RegistrationDetailResponse{
		Registration: reg,
		CanApprove:   api.svc.CanApprove(reg),
	})
}

func (api *registrationApi) approve(ctx echo.Context) error {
	var data ApproveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ApproveRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enrollment, err := data.enrollmentDate()
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "enrollment_date", Error: "invalid date, expected YYYY-MM-DD"})
	}

	res, err := api.svc.Approve(ctx.Request().Context(), contextSource(ctx), ctx.Param("id"), enrollment, data.ReviewerID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *registrationApi) reject(ctx echo.Context) error {
	var data RejectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RejectRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Reject(ctx.Request().Context(), contextSource(ctx), ctx.Param("id"), data.Reason, data.ReviewerID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *registrationApi) verifyPayment(ctx echo.Context) error {
	var data VerifyPaymentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyPaymentRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.VerifyPayment(ctx.Request().Context(), contextSource(ctx), ctx.Param("id"), *data.Verified, data.ReviewerID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

type (
	RegistrationQueryRequest struct {
		OrganizationID string `query:"org" json:"org" validate:"required"`
		Status         string `query:"status" json:"status" validate:"omitempty,oneof=pending approved rejected"`
		Search         string `query:"search" json:"search"`
	}

	RegistrationDetailResponse struct {
		registration.Registration
		CanApprove bool `json:"can_approve"`
	}

	ApproveRequest struct {
		EnrollmentDate string `json:"enrollment_date"`
		ReviewerID     string `json:"reviewer_id" validate:"required"`
	}

	RejectRequest struct {
		Reason     string `json:"reason" validate:"required"`
		ReviewerID string `json:"reviewer_id" validate:"required"`
	}

	VerifyPaymentRequest struct {
		Verified   *bool  `json:"verified" validate:"required"`
		ReviewerID string `json:"reviewer_id" validate:"required"`
	}
)

func (qr *RegistrationQueryRequest) Validate(validate *validator.Validate) error {
	qr.OrganizationID = core.CleanString(qr.OrganizationID)
	qr.Status = core.CleanString(qr.Status, true /* lower */)
	qr.Search = core.CleanString(qr.Search)
	return validate.Struct(qr)
}

func (ar *ApproveRequest) Validate(validate *validator.Validate) error {
	ar.EnrollmentDate = core.CleanString(ar.EnrollmentDate)
	ar.ReviewerID = core.CleanString(ar.ReviewerID)
	return validate.Struct(ar)
}

func (ar *ApproveRequest) enrollmentDate() (time.Time, error) {
	if ar.EnrollmentDate == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(enrollmentDateLayout, ar.EnrollmentDate)
}

func (rr *RejectRequest) Validate(validate *validator.Validate) error {
	rr.Reason = core.CleanString(rr.Reason)
	rr.ReviewerID = core.CleanString(rr.ReviewerID)
	return validate.Struct(rr)
}

func (vr *VerifyPaymentRequest) Validate(validate *validator.Validate) error {
	vr.ReviewerID = core.CleanString(vr.ReviewerID)
	return validate.Struct(vr)
}
