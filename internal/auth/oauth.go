// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"technexus/internal/models"
)

// Supported OAuth providers.
const (
	ProviderGitHub = "github"
	ProviderGoogle = "google"
)

// OAuthProvider is one configured OAuth login.
type OAuthProvider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
	// EmailsURL lists the account's addresses when the userinfo document
	// hides the email (GitHub private emails).
	EmailsURL string
}

// NewOAuthProvider configures a known provider. It returns nil when the
// client id is empty, so unconfigured providers can be skipped.
func NewOAuthProvider(name, clientID, clientSecret, redirectURL string) *OAuthProvider {
	if clientID == "" {
		return nil
	}
	p := &OAuthProvider{
		Name: name,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
		},
	}
	switch name {
	case ProviderGitHub:
		p.Config.Endpoint = endpoints.GitHub
		p.Config.Scopes = []string{"read:user", "user:email"}
		p.UserInfoURL = "https://api.github.com/user"
		p.EmailsURL = "https://api.github.com/user/emails"
	case ProviderGoogle:
		p.Config.Endpoint = endpoints.Google
		p.Config.Scopes = []string{"openid", "email", "profile"}
		p.UserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	default:
		return nil
	}
	return p
}

func (s *Service) provider(name string) (*OAuthProvider, error) {
	p, ok := s.cfg.OAuth[name]
	if !ok || p == nil {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// OAuthURL returns the provider's consent page URL for state.
func (s *Service) OAuthURL(name, state string) (string, error) {
	p, err := s.provider(name)
	if err != nil {
		return "", err
	}
	return p.Config.AuthCodeURL(state), nil
}

// CompleteOAuth exchanges an authorization code, looks up the provider's
// user and signs in the matching account, creating it on first login.
func (s *Service) CompleteOAuth(ctx context.Context, name, code string) (*models.Session, error) {
	p, err := s.provider(name)
	if err != nil {
		return nil, err
	}
	tok, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange: %w", err)
	}
	client := p.Config.Client(ctx, tok)
	info, err := fetchUserInfo(ctx, client, p.UserInfoURL)
	if err != nil {
		return nil, err
	}
	if info.Email == "" && p.EmailsURL != "" {
		if info.Email, err = fetchPrimaryEmail(ctx, client, p.EmailsURL); err != nil {
			return nil, err
		}
	}
	if info.Email == "" {
		return nil, models.Invalid("email", "provider did not share an email address")
	}
	email := strings.ToLower(info.Email)

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("oauth lookup: %w", err)
	}
	if u == nil {
		u, err = s.users.Create(ctx, email, "", info.metadata())
		if err != nil {
			return nil, fmt.Errorf("oauth create: %w", err)
		}
		slog.Info("user signed up via oauth", "provider", name, "user_id", u.ID)
	}
	return s.issueSession(u)
}

// userInfo covers the GitHub and Google userinfo documents.
type userInfo struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	Picture   string `json:"picture"`
}

func (u userInfo) metadata() models.UserMetadata {
	avatar := u.AvatarURL
	if avatar == "" {
		avatar = u.Picture
	}
	return models.UserMetadata{FullName: u.Name, Name: u.Name, Username: u.Login, AvatarURL: avatar}
}

func fetchUserInfo(ctx context.Context, client *http.Client, url string) (*userInfo, error) {
	var info userInfo
	if err := getJSON(ctx, client, url, &info); err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	return &info, nil
}

func fetchPrimaryEmail(ctx context.Context, client *http.Client, url string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, url, &emails); err != nil {
		return "", fmt.Errorf("user emails: %w", err)
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(dst)
}

// IsOAuthError reports whether err came from the provider exchange.
func IsOAuthError(err error) bool {
	var re *oauth2.RetrieveError
	return errors.As(err, &re)
}
