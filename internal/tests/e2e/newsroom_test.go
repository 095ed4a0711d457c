//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/cjnewshub/apiserver/config"
	"github.com/cjnewshub/apiserver/internal/db"
	"github.com/cjnewshub/apiserver/internal/server"
	"github.com/cjnewshub/apiserver/internal/store"
	"github.com/cjnewshub/apiserver/types"
)

const (
	serverPort    = 18080
	chiefID       = "admin1"
	chiefPassword = "chief-pass-123"
)

var chiefEmail = fmt.Sprintf("chief_%d@example.com", time.Now().UnixNano())

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	setTestEnv()

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := seedChief(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed chief account: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestEditorialWorkflow(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)

	var chief authResponse
	status := call(t, http.MethodPost, baseURL+"/auth/login", "", map[string]string{
		"email": chiefEmail, "password": chiefPassword, "role": "admin",
	}, &chief)
	if status != http.StatusOK || chief.Token == "" {
		t.Fatalf("chief login: status %d", status)
	}

	pubEmail := fmt.Sprintf("pub_%d@example.com", time.Now().UnixNano())
	var registered authResponse
	status = call(t, http.MethodPost, baseURL+"/auth/register", "", map[string]string{
		"name": "Pat Publisher", "email": pubEmail, "password": "pub-pass-123", "role": "publisher",
	}, &registered)
	if status != http.StatusCreated {
		t.Fatalf("register publisher: status %d", status)
	}
	if registered.Token != "" || registered.User.Status != types.UserStatusPending {
		t.Fatalf("new publisher should be pending without a token, got %+v", registered)
	}

	status = call(t, http.MethodPost, baseURL+"/auth/login", "", map[string]string{
		"email": pubEmail, "password": "pub-pass-123",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("pending publisher login: expected 401, got %d", status)
	}

	status = call(t, http.MethodPost, fmt.Sprintf("%s/users/%s/toggle-status", baseURL, registered.User.ID), chief.Token, nil, nil)
	if status != http.StatusOK {
		t.Fatalf("activate publisher: status %d", status)
	}

	var pub authResponse
	status = call(t, http.MethodPost, baseURL+"/auth/login", "", map[string]string{
		"email": pubEmail, "password": "pub-pass-123",
	}, &pub)
	if status != http.StatusOK {
		t.Fatalf("publisher login: status %d", status)
	}

	var direct types.Article
	status = call(t, http.MethodPost, baseURL+"/articles", pub.Token, map[string]any{
		"title": "Council budget passes", "category": "Politics", "content": "Vote was 7-2.", "status": "published",
	}, &direct)
	if status != http.StatusCreated {
		t.Fatalf("publisher create article: status %d", status)
	}
	if direct.Status != types.ArticlePublished {
		t.Fatalf("publisher article should keep the requested status, got %q", direct.Status)
	}
	if status := call(t, http.MethodGet, baseURL+"/articles/"+direct.ID, "", nil, nil); status != http.StatusOK {
		t.Fatalf("published article hidden from readers: status %d", status)
	}

	var reader authResponse
	status = call(t, http.MethodPost, baseURL+"/auth/register", "", map[string]string{
		"name": "Rita Reader", "email": fmt.Sprintf("sub_%d@example.com", time.Now().UnixNano()),
		"password": "sub-pass-123", "role": "subscriber",
	}, &reader)
	if status != http.StatusCreated || reader.Token == "" {
		t.Fatalf("register subscriber: status %d", status)
	}

	var article types.Article
	status = call(t, http.MethodPost, baseURL+"/articles", reader.Token, map[string]any{
		"title": "Harbour reopens", "category": "World", "content": "Ships are back.", "status": "published",
	}, &article)
	if status != http.StatusCreated {
		t.Fatalf("subscriber create article: status %d", status)
	}
	if article.Status != types.ArticlePending {
		t.Fatalf("subscriber article should be pending, got %q", article.Status)
	}

	if status := call(t, http.MethodGet, baseURL+"/articles/"+article.ID, "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("pending article visible to readers: status %d", status)
	}

	status = call(t, http.MethodPost, fmt.Sprintf("%s/moderation/article/%s/approve", baseURL, article.ID), pub.Token, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("publisher approve: expected 403, got %d", status)
	}
	status = call(t, http.MethodPost, fmt.Sprintf("%s/moderation/article/%s/approve", baseURL, article.ID), chief.Token, nil, nil)
	if status != http.StatusNoContent {
		t.Fatalf("chief approve: status %d", status)
	}

	var published types.Article
	if status := call(t, http.MethodGet, baseURL+"/articles/"+article.ID, "", nil, &published); status != http.StatusOK {
		t.Fatalf("get published article: status %d", status)
	}
	if published.Status != types.ArticlePublished {
		t.Fatalf("expected published article, got %q", published.Status)
	}

	status = call(t, http.MethodDelete, baseURL+"/users/"+chiefID, chief.Token, nil, nil)
	if status != http.StatusForbidden {
		t.Fatalf("deleting the chief account: expected 403, got %d", status)
	}
}

func TestAdClicksAreUniquePerOrigin(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)

	var chief authResponse
	if status := call(t, http.MethodPost, baseURL+"/auth/login", "", map[string]string{
		"email": chiefEmail, "password": chiefPassword,
	}, &chief); status != http.StatusOK {
		t.Fatalf("chief login: status %d", status)
	}

	var ad types.Advertisement
	status := call(t, http.MethodPost, baseURL+"/ads", chief.Token, map[string]any{
		"advertiser_name": "Acme", "image_url": "https://img.test/a.png", "target_url": "https://acme.test",
		"size": "300x250", "status": "active", "start_date": "2025-01-01", "end_date": "2030-01-01",
	}, &ad)
	if status != http.StatusCreated {
		t.Fatalf("create ad: status %d", status)
	}

	var first, second clickResponse
	if status := call(t, http.MethodPost, baseURL+"/ads/"+ad.ID+"/click", "", nil, &first); status != http.StatusOK {
		t.Fatalf("first click: status %d", status)
	}
	if status := call(t, http.MethodPost, baseURL+"/ads/"+ad.ID+"/click", "", nil, &second); status != http.StatusOK {
		t.Fatalf("second click: status %d", status)
	}
	if !first.Credited || first.Clicks != 1 {
		t.Fatalf("first click not credited: %+v", first)
	}
	if second.Credited || second.Clicks != 1 {
		t.Fatalf("repeat click credited: %+v", second)
	}
}

type authResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type clickResponse struct {
	Clicks   int64 `json:"clicks"`
	Credited bool  `json:"credited"`
}

func call(t *testing.T, method, url, token string, payload, out any) int {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	} else if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		t.Logf("%s %s -> %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp.StatusCode
}

func setTestEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "cjnews")
	_ = os.Setenv("DB_PASSWORD", "cjnews")
	_ = os.Setenv("DB_NAME", "cjnews")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("CHIEF_USER_ID", chiefID)
	_ = os.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	_ = os.Setenv("MINIO_SECRET_KEY", "minioadmin")
	_ = os.Setenv("MINIO_BUCKET", "cjnews")
	_ = os.Setenv("REDIS_ADDR", "localhost:6379")
}

func seedChief(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "DELETE FROM users WHERE id = $1", chiefID); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(chiefPassword), bcrypt.MinCost)
	if err != nil {
		return err
	}
	_, err = store.NewUserRepository(conn).Create(ctx, types.User{
		ID:           chiefID,
		Name:         "Chief Editor",
		Email:        chiefEmail,
		Role:         types.RoleAdmin,
		Status:       types.UserStatusActive,
		PasswordHash: string(hashed),
	})
	return err
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.DSN(cfg.Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
