package handler

import (
	"time"

	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

type registerPartnerRequest struct {
	ID          string `json:"id"           validate:"omitempty,max=128"`
	Email       string `json:"email"        validate:"required,email"`
	DisplayName string `json:"displayName"  validate:"required,max=120"`
	PhoneNumber string `json:"phoneNumber"  validate:"required,min=9,max=20"`
	AgencyName  string `json:"agencyName"   validate:"required,max=160"`
}

type listAccountsQuery struct {
	UserType string `query:"userType" validate:"omitempty,oneof=PARTNER CUSTOMER ADMIN partner customer admin"`
	Status   string `query:"status"   validate:"omitempty,oneof=pending_review payment_pending active rejected"`
	Page     int    `query:"page"     validate:"omitempty,min=1"`
	Limit    int    `query:"limit"    validate:"omitempty,min=1"`
}

type accountResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PhoneNumber      string    `json:"phoneNumber,omitempty"`
	AgencyName       string    `json:"agencyName,omitempty"`
	DisplayName      string    `json:"displayName,omitempty"`
	UserType         string    `json:"userType"`
	Status           any       `json:"status"`
	PaymentOrderCode *int64    `json:"paymentOrderCode,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type statusResponse struct {
	ID       string `json:"id"`
	UserType string `json:"userType"`
	Status   any    `json:"status"`
}

type listAccountsResponse struct {
	Items      []accountResponse `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"totalPages"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toAccountResponse(s *ports.AccountSummary) accountResponse {
	return accountResponse{
		ID:               s.ID,
		Email:            s.Email,
		PhoneNumber:      s.PhoneNumber,
		AgencyName:       s.AgencyName,
		DisplayName:      s.DisplayName,
		UserType:         s.UserType,
		Status:           s.Status,
		PaymentOrderCode: s.PaymentOrderCode,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}
