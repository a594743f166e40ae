package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type CreateSessionItem struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

func (i CreateSessionItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required, is.UUID),
		validation.Field(&i.Size, validation.Required, validation.Length(1, 10)),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

type CreateSessionRequest struct {
	UserEmail    string              `json:"userEmail"`
	Items        []CreateSessionItem `json:"items"`
	ShippingInfo ShippingInfo        `json:"shippingInfo"`
	Source       string              `json:"source"`
}

func (r CreateSessionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserEmail, validation.Required, is.Email),
		validation.Field(&r.Items, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.ShippingInfo, validation.Required),
		validation.Field(&r.Source, validation.In(SourceCart, SourceBuyNow)),
	)
}

func (s ShippingInfo) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&s.Phone, validation.Required, validation.Length(6, 20)),
		validation.Field(&s.AddressLine1, validation.Required, validation.Length(1, 500)),
		validation.Field(&s.City, validation.Required, validation.Length(1, 100)),
		validation.Field(&s.Country, validation.Required, validation.Length(2, 100)),
	)
}

type SessionResponse struct {
	SessionID     string         `json:"sessionId"`
	Status        string         `json:"status"`
	Items         []LineSnapshot `json:"items"`
	Subtotal      string         `json:"subtotal"`
	ShippingCost  string         `json:"shippingCost"`
	Total         string         `json:"total"`
	StockReserved bool           `json:"stockReserved"`
	ExpiresAt     string         `json:"expiresAt"`
}

func NewSessionResponse(s *CheckoutSession) *SessionResponse {
	return &SessionResponse{
		SessionID:     s.ID.String(),
		Status:        s.Status,
		Items:         s.Items,
		Subtotal:      s.Subtotal.StringFixed(2),
		ShippingCost:  s.ShippingCost.StringFixed(2),
		Total:         s.Total.StringFixed(2),
		StockReserved: s.StockReserved,
		ExpiresAt:     s.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
