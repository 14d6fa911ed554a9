package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// LoginResult is the credential handed out by /auth/login.
type LoginResult struct {
	Token string      `json:"access_token"`
	User  domain.User `json:"user"`
}

// Register creates an account. The backend answers 201 on success.
func (c *Client) Register(ctx context.Context, u domain.User) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(u.Email)
	if u.Username == "" || u.Email == "" || u.Password == "" {
		return &domain.ValidationError{Field: "user", Message: "username, email and password are required"}
	}
	_, err := c.do(ctx, http.MethodPost, "/auth/register", "", u)
	return err
}

// Login exchanges credentials for a token. A 401 is reported as
// domain.ErrInvalidCredentials, not as an expired session.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, &domain.ValidationError{Field: "credentials", Message: domain.MsgMissingCredentials}
	}

	raw, err := c.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		if domain.IsUnauthorized(err) {
			return LoginResult{}, domain.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	var out LoginResult
	if err := decodeData(raw, &out); err != nil {
		return LoginResult{}, decodeError(http.MethodPost, "/auth/login", err)
	}
	if out.Token == "" {
		return LoginResult{}, errors.New("login response carries no access_token")
	}
	return out, nil
}

// SignIn logs in and completes the partial user of the login response with
// the full profile. The partial record is kept when that lookup fails.
func (c *Client) SignIn(ctx context.Context, email, password string) (LoginResult, error) {
	res, err := c.Login(ctx, email, password)
	if err != nil || res.User.ID == 0 {
		return res, err
	}
	full, err := c.GetUser(ctx, res.Token, res.User.ID)
	if err != nil {
		c.logger.Debug("user lookup after login failed, keeping login payload", logger.Error(err))
		return res, nil
	}
	res.User = full
	return res, nil
}

// GetUser fetches the full profile of a user.
func (c *Client) GetUser(ctx context.Context, token string, id int64) (domain.User, error) {
	path := "/users/" + strconv.FormatInt(id, 10)
	raw, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return domain.User{}, err
	}
	var u domain.User
	if err := decodeData(raw, &u); err != nil {
		return domain.User{}, decodeError(http.MethodGet, path, err)
	}
	return u, nil
}

// RefreshToken posts an empty body to the refresh endpoint and extracts the
// new token from any of the shapes the backend has used:
// {token}, {access_token}, {data: {token}} and {data: {access_token}}.
func (c *Client) RefreshToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrNotAuthenticated
	}
	raw, err := c.do(ctx, http.MethodPost, c.refreshPath, token, struct{}{})
	if err != nil {
		return "", err
	}
	fresh, err := parseRefreshedToken(raw)
	if err != nil {
		return "", fmt.Errorf("refresh %s: %w", c.refreshPath, err)
	}
	return fresh, nil
}

type tokenShape struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

func (t tokenShape) value() string {
	if t.Token != "" {
		return t.Token
	}
	return t.AccessToken
}

func parseRefreshedToken(raw []byte) (string, error) {
	var body struct {
		tokenShape
		Data *tokenShape `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("malformed response: %w", err)
	}
	if tok := body.value(); tok != "" {
		return tok, nil
	}
	if body.Data != nil {
		if tok := body.Data.value(); tok != "" {
			return tok, nil
		}
	}
	return "", errors.New("response carries no token")
}
