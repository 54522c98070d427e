package server

import (
	"github.com/labstack/echo/v4"

	"github.com/invory/notification-service/internal/usecase"
)

type NotificationRequest struct {
	Title string            `json:"title" validate:"required"`
	Body  string            `json:"body" validate:"required"`
	Data  map[string]string `json:"data"`
}

type SendError struct {
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

type BatchResult struct {
	Success       int         `json:"success"`
	Failure       int         `json:"failure"`
	InvalidTokens []string    `json:"invalid_tokens"`
	Errors        []SendError `json:"errors,omitempty"`
}

func toBatchResult(res usecase.BatchResult) BatchResult {
	out := BatchResult{
		Success:       res.Success,
		Failure:       res.Failure,
		InvalidTokens: res.InvalidTokens,
	}
	if out.InvalidTokens == nil {
		out.InvalidTokens = []string{}
	}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, SendError{Token: e.Token, Reason: e.Reason})
	}
	return out
}

type SendToTokenRequest struct {
	Token string `json:"token" validate:"required"`
	NotificationRequest
}

func (s *Server) SendToToken(ctx echo.Context) error {
	var req SendToTokenRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	o := s.server.SendToToken(ctx.Request().Context(), req.Token, usecase.NotificationPayload{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})

	switch o.State {
	case usecase.Delivered:
		return ctx.JSON(200, Res{
			Data: map[string]string{"message_id": o.MessageID},
		})
	case usecase.Rejected:
		// The token is permanently invalid, the caller should drop it.
		return ctx.JSON(400, Res{
			Error:   o.Err.Error(),
			Message: "token rejected",
		})
	default:
		return ctx.JSON(502, Res{
			Error:   o.Err.Error(),
			Message: "delivery failed",
		})
	}
}

type SendToUserRequest struct {
	UserID string `json:"user_id" validate:"required"`
	NotificationRequest
}

func (s *Server) SendToUser(ctx echo.Context) error {
	var req SendToUserRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	res, err := s.server.SendToUser(ctx.Request().Context(), req.UserID, usecase.NotificationPayload{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})
	if err != nil {
		return ctx.JSON(500, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(200, Res{Data: toBatchResult(res)})
}

type SendToManyRequest struct {
	Tokens []string `json:"tokens" validate:"required,min=1,max=100,dive,required"`
	NotificationRequest
}

func (s *Server) SendToMany(ctx echo.Context) error {
	var req SendToManyRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	res := s.server.SendToMany(ctx.Request().Context(), req.Tokens, usecase.NotificationPayload{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})

	return ctx.JSON(200, Res{Data: toBatchResult(res)})
}

type StockAlertRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Product struct {
		ID        string `json:"id" validate:"required"`
		Name      string `json:"name" validate:"required"`
		Quantity  int    `json:"quantity" validate:"min=0"`
		Threshold int    `json:"threshold" validate:"min=0"`
	} `json:"product" validate:"required"`
}

// QueueStockAlert accepts a product quantity change and hands it to the
// background queue. Composition and the threshold decision happen in the
// worker, so callers report every change and get a 202 back.
func (s *Server) QueueStockAlert(ctx echo.Context) error {
	var req StockAlertRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	err := s.server.QueueStockAlert(ctx.Request().Context(), usecase.StockAlert{
		UserID: req.UserID,
		Product: usecase.Product{
			ID:        req.Product.ID,
			Name:      req.Product.Name,
			Quantity:  req.Product.Quantity,
			Threshold: req.Product.Threshold,
		},
	})
	if err != nil {
		return ctx.JSON(500, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(202, Res{Message: "stock alert queued"})
}
