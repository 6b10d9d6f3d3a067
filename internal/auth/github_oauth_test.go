package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGitHubOAuthProvider_GetLoginURL_ContainsRequiredParams(t *testing.T) {
	provider := NewGitHubOAuthProvider(GitHubOAuthConfig{
		ClientID:    "test-client-id",
		RedirectURL: "http://localhost:8080/auth/github/callback",
	})

	url := provider.GetLoginURL("test-state-value")

	if url == "" {
		t.Fatal("expected non-empty URL")
	}

	// 基本的なパラメータの存在を確認
	tests := []struct {
		name     string
		contains string
	}{
		{"client_id", "client_id=test-client-id"},
		{"redirect_uri", "redirect_uri="},
		{"state", "state=test-state-value"},
		{"scope read:user", "read%3Auser"},
		{"scope user:email", "user%3Aemail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(url, tt.contains) {
				t.Errorf("URL should contain %q, got %q", tt.contains, url)
			}
		})
	}
}

func TestGitHubOAuthProvider_ExchangeCode_Success(t *testing.T) {
	// GitHub Token Endpoint
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// GitHubはAcceptヘッダーでJSONを要求しないとform-encodedを返す
		if accept := r.Header.Get("Accept"); accept != "application/json" {
			t.Errorf("Accept header = %q, want application/json", accept)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-access-token",
			"token_type":   "bearer",
			"scope":        "read:user,user:email",
		})
	}))
	defer tokenServer.Close()

	// GitHub User Endpoint
	userServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "Bearer test-access-token" {
			t.Errorf("unexpected Authorization header: %q", authHeader)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         12345,
			"login":      "hitoshi",
			"name":       "Hitoshi Ichikawa",
			"email":      "hitoshi@example.com",
			"avatar_url": "https://avatars.githubusercontent.com/u/12345?v=4",
		})
	}))
	defer userServer.Close()

	provider := NewGitHubOAuthProvider(GitHubOAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "http://localhost:8080/auth/github/callback",
		TokenURL:     tokenServer.URL,
		UserURL:      userServer.URL,
	})

	profile, err := provider.ExchangeCode(context.Background(), "test-auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	if profile == nil {
		t.Fatal("expected non-nil profile")
	}
	if profile.ExternalID != "12345" {
		t.Errorf("ExternalID = %q, want %q", profile.ExternalID, "12345")
	}
	if profile.ExternalUsername != "hitoshi" {
		t.Errorf("ExternalUsername = %q, want %q", profile.ExternalUsername, "hitoshi")
	}
	if profile.DisplayName != "Hitoshi Ichikawa" {
		t.Errorf("DisplayName = %q, want %q", profile.DisplayName, "Hitoshi Ichikawa")
	}
	if profile.Email != "hitoshi@example.com" {
		t.Errorf("Email = %q, want %q", profile.Email, "hitoshi@example.com")
	}
}

func TestGitHubOAuthProvider_ExchangeCode_EmptyName_FallsBackToLogin(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok"})
	}))
	defer tokenServer.Close()

	userServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// nameが未設定のGitHubアカウント
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    777,
			"login": "no-name-user",
		})
	}))
	defer userServer.Close()

	provider := NewGitHubOAuthProvider(GitHubOAuthConfig{
		TokenURL: tokenServer.URL,
		UserURL:  userServer.URL,
	})

	profile, err := provider.ExchangeCode(context.Background(), "code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if profile.DisplayName != "no-name-user" {
		t.Errorf("DisplayName = %q, want login fallback %q", profile.DisplayName, "no-name-user")
	}
}

func TestGitHubOAuthProvider_ExchangeCode_TokenErrorStatus_ReturnsError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer tokenServer.Close()

	provider := NewGitHubOAuthProvider(GitHubOAuthConfig{
		TokenURL: tokenServer.URL,
	})

	_, err := provider.ExchangeCode(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("expected error for token endpoint failure")
	}
}

func TestGitHubOAuthProvider_ExchangeCode_EmptyAccessToken_ReturnsError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// bad_verification_codeなどGitHubはエラーでも200を返すことがある
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "bad_verification_code"})
	}))
	defer tokenServer.Close()

	provider := NewGitHubOAuthProvider(GitHubOAuthConfig{
		TokenURL: tokenServer.URL,
	})

	_, err := provider.ExchangeCode(context.Background(), "expired-code")
	if err == nil {
		t.Fatal("expected error for empty access token")
	}
}

func TestGitHubOAuthProvider_ExchangeCode_UserFetchFails_ReturnsError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok"})
	}))
	defer tokenServer.Close()

	userServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer userServer.Close()

	provider := NewGitHubOAuthProvider(GitHubOAuthConfig{
		TokenURL: tokenServer.URL,
		UserURL:  userServer.URL,
	})

	_, err := provider.ExchangeCode(context.Background(), "code")
	if err == nil {
		t.Fatal("expected error for user endpoint failure")
	}
}
