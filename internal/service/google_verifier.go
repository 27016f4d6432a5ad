package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GoogleVerifier 通过 Google tokeninfo 端点核验 ID Token。
// aud 必须等于配置的 Client ID，邮箱未验证的令牌一律拒绝。
type GoogleVerifier struct {
	clientID string
	baseURL  string
	http     httpDoer
}

type tokenInfoResponse struct {
	Audience      string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
}

// NewGoogleVerifier 构造 GoogleVerifier。
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: strings.TrimSpace(clientID),
		baseURL:  "https://oauth2.googleapis.com/tokeninfo",
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SetHTTPClient 允许测试注入假客户端。
func (v *GoogleVerifier) SetHTTPClient(client httpDoer) {
	if client == nil {
		v.http = &http.Client{Timeout: 10 * time.Second}
		return
	}
	v.http = client
}

// SetBaseURL 允许测试指向本地端点。
func (v *GoogleVerifier) SetBaseURL(baseURL string) {
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		v.baseURL = trimmed
	}
}

// Verify 实现 IdentityVerifier。
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (string, error) {
	if v.clientID == "" {
		return "", errors.New("google client id not configured")
	}
	if strings.TrimSpace(token) == "" {
		return "", errors.New("empty identity token")
	}

	endpoint := fmt.Sprintf("%s?id_token=%s", v.baseURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tokeninfo rejected token: status %d", resp.StatusCode)
	}

	var info tokenInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode tokeninfo response: %w", err)
	}

	if info.Audience != v.clientID {
		return "", errors.New("token audience mismatch")
	}
	if info.Email == "" || info.EmailVerified != "true" {
		return "", errors.New("token has no verified email")
	}

	return info.Email, nil
}
