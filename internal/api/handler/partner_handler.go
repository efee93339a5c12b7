package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

// PartnerHandler serves partner registration, the status read and the
// admin actions.
type PartnerHandler struct {
	svc ports.PartnerService
}

func NewPartnerHandler(svc ports.PartnerService) *PartnerHandler {
	return &PartnerHandler{svc: svc}
}

// Register handles POST /v1/partners.
//
// @Summary      Register a partner account
// @Tags         partners
// @Accept       json
// @Produce      json
// @Param        body  body      registerPartnerRequest  true  "Partner registration details"
// @Success      201   {object}  accountResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /v1/partners [post]
func (h *PartnerHandler) Register(c echo.Context) error {
	var req registerPartnerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	acc, err := h.svc.Register(c.Request().Context(), ports.RegisterPartnerInput{
		ID:          req.ID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhoneNumber: req.PhoneNumber,
		AgencyName:  req.AgencyName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAccountResponse(acc))
}

// Status handles GET /v1/partners/:id/status.
//
// @Summary      Get a partner's lifecycle status
// @Tags         partners
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  statusResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/partners/{id}/status [get]
func (h *PartnerHandler) Status(c echo.Context) error {
	role, accountID, err := ctxClaims(c)
	if err != nil {
		return err
	}

	acc, err := h.svc.Get(c.Request().Context(), ports.GetAccountInput{ID: c.Param("id"), Role: role, AccountID: accountID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse{ID: acc.ID, UserType: acc.UserType, Status: acc.Status})
}

// Get handles GET /v1/admin/accounts/:id.
//
// @Summary      Get an account
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  accountResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/admin/accounts/{id} [get]
func (h *PartnerHandler) Get(c echo.Context) error {
	role, accountID, err := ctxClaims(c)
	if err != nil {
		return err
	}

	acc, err := h.svc.Get(c.Request().Context(), ports.GetAccountInput{ID: c.Param("id"), Role: role, AccountID: accountID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(acc))
}

// List handles GET /v1/admin/accounts.
//
// @Summary      List accounts
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        userType  query     string  false  "CUSTOMER or PARTNER"
// @Param        status    query     string  false  "Partner status"
// @Param        page      query     int     false  "Page number"
// @Param        limit     query     int     false  "Page size"
// @Success      200       {object}  listAccountsResponse
// @Failure      400       {object}  map[string]string
// @Failure      403       {object}  map[string]string
// @Router       /v1/admin/accounts [get]
func (h *PartnerHandler) List(c echo.Context) error {
	var q listAccountsQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.svc.List(c.Request().Context(), ports.ListAccountsInput{
		UserType:      q.UserType,
		PartnerStatus: q.Status,
		Page:          q.Page,
		Limit:         q.Limit,
	})
	if err != nil {
		return err
	}

	items := make([]accountResponse, 0, len(res.Items))
	for i := range res.Items {
		items = append(items, toAccountResponse(&res.Items[i]))
	}
	return c.JSON(http.StatusOK, listAccountsResponse{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	})
}

// Approve handles POST /v1/admin/accounts/:id/approve.
//
// @Summary      Approve a partner
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  accountResponse
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /v1/admin/accounts/{id}/approve [post]
func (h *PartnerHandler) Approve(c echo.Context) error { return h.action(c, h.svc.Approve) }

// Reject handles POST /v1/admin/accounts/:id/reject.
//
// @Summary      Reject a partner
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  accountResponse
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /v1/admin/accounts/{id}/reject [post]
func (h *PartnerHandler) Reject(c echo.Context) error { return h.action(c, h.svc.Reject) }

// Activate handles POST /v1/admin/accounts/:id/activate.
//
// @Summary      Activate a partner manually
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  accountResponse
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /v1/admin/accounts/{id}/activate [post]
func (h *PartnerHandler) Activate(c echo.Context) error { return h.action(c, h.svc.Activate) }

// Toggle handles POST /v1/admin/accounts/:id/toggle.
//
// @Summary      Toggle a customer's status
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  accountResponse
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /v1/admin/accounts/{id}/toggle [post]
func (h *PartnerHandler) Toggle(c echo.Context) error { return h.action(c, h.svc.ToggleCustomer) }

// Resend handles POST /v1/admin/accounts/:id/resend.
//
// @Summary      Resend the current status notification
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      202  {object}  messageResponse
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /v1/admin/accounts/{id}/resend [post]
func (h *PartnerHandler) Resend(c echo.Context) error {
	if err := h.svc.Resend(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, messageResponse{Message: "notification resent"})
}

func (h *PartnerHandler) action(c echo.Context, fn func(context.Context, string) (*ports.AccountSummary, error)) error {
	acc, err := fn(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(acc))
}
