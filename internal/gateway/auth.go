package gateway

import (
	"context"
	"net/http"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// Fallback messages for auth operations.
const (
	MsgSignIn           = "Failed to sign in"
	MsgNotAuthenticated = "Not authenticated"
	MsgSignOut          = "Failed to sign out"
	MsgSignUp           = "Failed to sign up"
)

// SignIn authenticates and starts a cookie session (POST /api/auth/signin).
func (c *Client) SignIn(ctx context.Context, req ir.SignInRequest) (ir.SignInResponse, error) {
	var resp ir.SignInResponse
	_, err := c.do(ctx, call{
		op: "auth.signin", method: http.MethodPost, path: "/api/auth/signin",
		body: req, fallback: MsgSignIn,
	}, &resp)
	return resp, err
}

// FetchSession returns the identity behind the current cookies (GET /api/auth/me).
func (c *Client) FetchSession(ctx context.Context) (ir.SignInResponse, error) {
	var resp ir.SignInResponse
	_, err := c.do(ctx, call{
		op: "auth.me", method: http.MethodGet, path: "/api/auth/me", fallback: MsgNotAuthenticated,
	}, &resp)
	return resp, err
}

// Logout ends the server session (POST /api/auth/logout).
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, call{
		op: "auth.logout", method: http.MethodPost, path: "/api/auth/logout", fallback: MsgSignOut,
	}, nil)
	return err
}

// SignUp registers an account (POST /api/auth/signup). It does not sign in.
func (c *Client) SignUp(ctx context.Context, req ir.SignUpRequest) (ir.SignUpResponse, error) {
	var resp ir.SignUpResponse
	_, err := c.do(ctx, call{
		op: "auth.signup", method: http.MethodPost, path: "/api/auth/signup",
		body: req, fallback: MsgSignUp,
	}, &resp)
	return resp, err
}
