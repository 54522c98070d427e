package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/invory/notification-service/internal/usecase"
)

type PushToken struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Token     string         `json:"token"`
	Platform  string         `json:"platform"`
	Active    bool           `json:"active"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	LastUsed  string         `json:"last_used"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

type SavePushTokenRequest struct {
	Token    string         `json:"token" validate:"required"`
	Platform string         `json:"platform" validate:"required,oneof=android ios web"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) SavePushToken(ctx echo.Context) error {
	var req SavePushTokenRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	err := s.server.SavePushToken(ctx.Request().Context(), req.Token, req.Platform, req.Metadata)
	if err != nil {
		return ctx.JSON(500, map[string]string{"error": err.Error()})
	}

	return ctx.NoContent(204)
}

const defaultListLimit = 20

type ListPushTokensRequest struct {
	Skip  int `query:"skip"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

func (s *Server) ListPushTokens(ctx echo.Context) error {
	var req ListPushTokensRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	if req.Limit == 0 {
		req.Limit = defaultListLimit
	}

	tokens, total, err := s.server.ListPushTokens(ctx.Request().Context(), usecase.ListPushTokensOption{
		Skip:  req.Skip,
		Limit: req.Limit,
	})
	if err != nil {
		return ctx.JSON(500, map[string]string{"error": err.Error()})
	}

	list := make([]PushToken, 0, len(tokens))
	for _, t := range tokens {
		list = append(list, PushToken{
			ID:        t.ID.String(),
			UserID:    t.UserID,
			Token:     t.Token,
			Platform:  t.Platform,
			Active:    t.Active,
			Metadata:  t.Metadata,
			LastUsed:  t.LastUsed.Format(time.RFC3339),
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
			UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
		})
	}

	return ctx.JSON(200, Res{
		Data: list,
		Meta: &Meta{
			Total: total,
			Skip:  req.Skip,
			Limit: req.Limit,
		},
	})
}

type DeletePushTokenRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (s *Server) DeletePushToken(ctx echo.Context) error {
	var req DeletePushTokenRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	id, _ := uuid.Parse(req.ID)

	err := s.server.DeletePushToken(ctx.Request().Context(), id)
	if err != nil {
		return ctx.JSON(500, map[string]string{"error": err.Error()})
	}

	return ctx.NoContent(204)
}
