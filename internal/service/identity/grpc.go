package identity

import (
	"context"
	"log/slog"
	"time"

	svcErr "github.com/oggyb/recipebox/internal/errors"
	"github.com/oggyb/recipebox/internal/mail"
	"github.com/oggyb/recipebox/internal/storage"
)

const dispatchTimeout = 5 * time.Second

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Status string `json:"status"`
}

type VerifyRequest struct {
	Code string `json:"code"`
}

type VerifyResponse struct {
	Verified bool `json:"verified"`
}

type ResendRequest struct {
	Email string `json:"email"`
}

// ResendResponse is identical whether or not the email had a pending
// account, so callers learn nothing about registrations.
type ResendResponse struct {
	Accepted bool `json:"accepted"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type GetProfileRequest struct {
	Username string `json:"username"`
	Viewer   string `json:"viewer"`
}

type UpdateSettingsRequest struct {
	Username string `json:"username"`
	SettingsInput
}

// AccountServer is the recipebox.v1.AccountService API.
type AccountServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Verify(context.Context, *VerifyRequest) (*VerifyResponse, error)
	ResendVerification(context.Context, *ResendRequest) (*ResendResponse, error)
	Login(context.Context, *LoginRequest) (*Profile, error)
	GetProfile(context.Context, *GetProfileRequest) (*Profile, error)
	UpdateSettings(context.Context, *UpdateSettingsRequest) (*Profile, error)
}

// Handler adapts Service to the gRPC API and hands codes to the dispatcher.
type Handler struct {
	svc        *Service
	dispatcher mail.Dispatcher
	store      storage.ObjectStore
	log        *slog.Logger
}

func NewHandler(svc *Service, dispatcher mail.Dispatcher, store storage.ObjectStore) *Handler {
	return &Handler{svc: svc, dispatcher: dispatcher, store: store, log: svc.appCtx.Logger}
}

func (h *Handler) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	code, err := h.svc.Register(ctx, RegisterInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, svcErr.Map(err)
	}
	h.dispatch(ctx, NormalizeEmail(req.Email), code)
	return &RegisterResponse{Status: "pending_verification"}, nil
}

func (h *Handler) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResponse, error) {
	ok, err := h.svc.Verify(ctx, req.Code)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &VerifyResponse{Verified: ok}, nil
}

func (h *Handler) ResendVerification(ctx context.Context, req *ResendRequest) (*ResendResponse, error) {
	ok, code, err := h.svc.ResendVerification(ctx, req.Email)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if ok {
		h.dispatch(ctx, NormalizeEmail(req.Email), code)
	}
	return &ResendResponse{Accepted: true}, nil
}

func (h *Handler) Login(ctx context.Context, req *LoginRequest) (*Profile, error) {
	acct, err := h.svc.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	p := profileOf(acct)
	return &p, nil
}

func (h *Handler) GetProfile(ctx context.Context, req *GetProfileRequest) (*Profile, error) {
	p, err := h.svc.GetProfile(ctx, req.Username, req.Viewer)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return p, nil
}

func (h *Handler) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*Profile, error) {
	previous, err := h.svc.UpdateSettings(ctx, req.Username, req.SettingsInput)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if previous != "" && h.store != nil {
		if err := h.store.Delete(ctx, previous); err != nil {
			h.log.Warn("old avatar not deleted", "ref", previous, "err", err)
		}
	}
	p, err := h.svc.GetProfile(ctx, req.Username, req.Username)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return p, nil
}

// dispatch never fails the request; undelivered codes can be resent.
func (h *Handler) dispatch(ctx context.Context, email, code string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	if err := h.dispatcher.Send(ctx, email, code); err != nil {
		h.log.Error("verification code dispatch failed", "email", email, "err", err)
	}
}
