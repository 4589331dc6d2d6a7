package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/erp/labelstation/internal/domain/shared"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultLoginPath  = "/api/ewms/login"
	defaultLogoutPath = "/api/ewms/logout"
	defaultTimeout    = 10 * time.Second
)

// ErrInvalidCredentials is returned when the backend rejects a login
var ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password.")

// ClientConfig contains configuration for the auth client
type ClientConfig struct {
	BaseURL    string
	LoginPath  string
	LogoutPath string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Client logs the operator in and out of the inventory backend
type Client struct {
	httpClient *resty.Client
	session    *Session
	loginPath  string
	logoutPath string
	logger     *zap.Logger
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginData struct {
	Token string `json:"token"`
}

// NewClient creates a new auth client writing into session
func NewClient(cfg *ClientConfig, session *Session) *Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = defaultLoginPath
	}
	if cfg.LogoutPath == "" {
		cfg.LogoutPath = defaultLogoutPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if session == nil {
		session = NewSession()
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		session:    session,
		loginPath:  cfg.LoginPath,
		logoutPath: cfg.LogoutPath,
		logger:     logger,
	}
}

// Session returns the session the client writes into
func (c *Client) Session() *Session {
	return c.session
}

// Login authenticates username and stores the issued token in the session.
// A rejected login returns a DomainError carrying the backend's message.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}

	c.logger.Info("attempting login", zap.String("user", username))

	var env envelope
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(loginRequest{Username: username, Password: password}).
		SetResult(&env).
		SetError(&env).
		Post(c.loginPath)
	if err != nil {
		c.logger.Error("login request failed", zap.String("user", username), zap.Error(err))
		return fmt.Errorf("login request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK || env.StatusCode != http.StatusOK {
		message := ErrInvalidCredentials.Message
		if env.Message != "" {
			message = env.Message
		}
		c.logger.Error("login failed",
			zap.String("user", username),
			zap.Int("http_status", resp.StatusCode()),
			zap.String("message", message))
		return shared.NewDomainError(ErrInvalidCredentials.Code, message)
	}

	var data loginData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			c.logger.Warn("login response carried no readable token", zap.Error(err))
		}
	}

	c.session.Set(username, data.Token)
	c.logger.Info("login successful", zap.String("user", username))
	return nil
}

// Logout tells the backend the session ended. The local session is cleared
// whatever the backend answers.
func (c *Client) Logout(ctx context.Context) {
	user := c.session.User()
	token := c.session.Token()
	c.session.Clear()

	c.logger.Info("attempting logout", zap.String("user", user))

	req := c.httpClient.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}

	var env envelope
	resp, err := req.SetResult(&env).Post(c.logoutPath)
	if err != nil || resp.StatusCode() != http.StatusOK || env.StatusCode != http.StatusOK {
		c.logger.Warn("logout call failed, local session cleared", zap.Error(err))
		return
	}
	c.logger.Info("logout successful")
}
