package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/reposcore/httpclient"
	"github.com/jonwraymond/reposcore/observe"
)

// AppConfig configures GitHub App installation authentication.
type AppConfig struct {
	// AppID is the numeric app id, used as the JWT issuer.
	AppID string

	// InstallationID selects the installation whose token is minted.
	InstallationID int64

	// PrivateKey is the app's PEM-encoded RSA key.
	PrivateKey []byte

	// BaseURL is the REST API root.
	// Default: https://api.github.com
	BaseURL string

	// APIVersion is sent as X-GitHub-Api-Version.
	// Default: 2022-11-28
	APIVersion string

	// RefreshBefore is how long before expiry a cached token is replaced.
	// Default: 1m
	RefreshBefore time.Duration
}

// AppInstallationSource mints and caches installation access tokens.
//
// Contract:
// - Concurrency: safe for concurrent use; concurrent refreshes share one
// upstream exchange.
// - Errors: exchange failures wrap ErrTokenExchangeFailed.
type AppInstallationSource struct {
	config AppConfig
	key    *rsa.PrivateKey
	client *httpclient.Client
	logger observe.Logger
	now    func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewAppInstallationSource validates config and parses the private key.
func NewAppInstallationSource(config AppConfig, client *httpclient.Client, tel observe.Telemetry) (*AppInstallationSource, error) {
	if config.AppID == "" || config.InstallationID <= 0 {
		return nil, fmt.Errorf("%w: app id and installation id are required", ErrMissingCredentials)
	}
	key, err := ParsePrivateKey(config.PrivateKey)
	if err != nil {
		return nil, err
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.github.com"
	}
	if config.APIVersion == "" {
		config.APIVersion = "2022-11-28"
	}
	if config.RefreshBefore <= 0 {
		config.RefreshBefore = time.Minute
	}
	if client == nil {
		client = httpclient.New(httpclient.Config{})
	}
	return &AppInstallationSource{
		config: config,
		key:    key,
		client: client,
		logger: tel.Component("auth").Logger,
		now:    time.Now,
	}, nil
}

// Token returns a cached installation token, exchanging a fresh one when
// the cached token is missing or within RefreshBefore of expiry.
func (s *AppInstallationSource) Token(ctx context.Context) (string, error) {
	if token, ok := s.cached(); ok {
		return token, nil
	}

	ch := s.group.DoChan("installation", func() (any, error) {
		if token, ok := s.cached(); ok {
			return token, nil
		}
		// Detached so one caller's cancellation does not fail the others.
		return s.exchange(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *AppInstallationSource) cached() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || !s.now().Add(s.config.RefreshBefore).Before(s.expiresAt) {
		return "", false
	}
	return s.token, true
}

type installationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *AppInstallationSource) exchange(ctx context.Context) (string, error) {
	appJWT, err := SignAppJWT(s.config.AppID, s.key, s.now())
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(s.config.BaseURL, "/") +
		"/app/installations/" + strconv.FormatInt(s.config.InstallationID, 10) + "/access_tokens"
	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("X-GitHub-Api-Version", s.config.APIVersion)
	header.Set("Authorization", "Bearer "+appJWT)

	resp, err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		URL:    url,
		Header: header,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}
	if resp.Status != http.StatusCreated && resp.Status != http.StatusOK {
		return "", fmt.Errorf("%w: status=%d", ErrTokenExchangeFailed, resp.Status)
	}

	var it installationToken
	if err := resp.JSON(&it); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}
	if it.Token == "" {
		return "", fmt.Errorf("%w: empty token", ErrTokenExchangeFailed)
	}

	s.mu.Lock()
	s.token = it.Token
	s.expiresAt = it.ExpiresAt
	s.mu.Unlock()

	s.logger.Info(ctx, "installation token refreshed",
		observe.F("installation_id", s.config.InstallationID),
		observe.F("expires_at", it.ExpiresAt.Format(time.RFC3339)),
	)
	return it.Token, nil
}

var _ TokenSource = (*AppInstallationSource)(nil)
