package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/chromox/api/internal/auth"
	"github.com/chromox/api/internal/handler"
	"github.com/chromox/api/internal/library"
	"github.com/chromox/api/internal/middleware"
	"github.com/chromox/api/internal/model"
	"github.com/chromox/api/internal/orchestrator"
	"github.com/chromox/api/internal/service"
	ws "github.com/chromox/api/internal/websocket"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	redis   *redis.Client
	library *service.LibraryService
	folio   *service.FolioService
}

// setupApp creates a Fiber app identical to main.go but with unconfigured
// external clients, so services use mock fallbacks. Requires a local
// Redis; tests are skipped when it is not reachable.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Redis (localhost — DB 15 to avoid collision with dev data)
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	if err := redisClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush test DB: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	// Services — nil storage client triggers mock URLs
	libraryService := service.NewLibraryService(redisClient, asynqClient)
	folioService := service.NewFolioService(redisClient, libraryService, nil, nil)
	store := service.NewLibraryStore(libraryService, folioService)

	renderView := library.NewView(library.RenderJobs(), libraryService.ListRenders)
	clipView := library.NewView(library.FolioClips(), folioService.ListClips)

	orch := orchestrator.New(store, orchestrator.Options{
		Timeout:        10 * time.Second,
		RefreshRenders: renderView.Refresh,
		Notify:         hub.BroadcastChanged,
	})

	libraryHandler := handler.NewLibraryHandler(renderView, orch, libraryService, validate)
	folioHandler := handler.NewFolioHandler(clipView, orch, folioService, validate)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	// Very high rate limits so tests don't get blocked
	renders := api.Group("/library/renders")
	renders.Get("/", libraryHandler.List)
	renders.Post("/refresh", libraryHandler.Refresh)
	renders.Post("/groups/collapse", libraryHandler.Collapse)
	renders.Post("/:id/rating", rateLimiter.ActionLimit(10000), libraryHandler.Rate)
	renders.Post("/:id/label/edit", libraryHandler.BeginRename)
	renders.Delete("/:id/label/edit", libraryHandler.CancelRename)
	renders.Put("/:id/label", rateLimiter.ActionLimit(10000), libraryHandler.Rename)
	renders.Post("/:id/folio", rateLimiter.ActionLimit(10000), libraryHandler.SaveToFolio)
	renders.Post("/:id/replay", rateLimiter.ReplayLimit(10000), libraryHandler.Replay)
	api.Get("/library/replay/:jobId", libraryHandler.ReplayStatus)

	clips := api.Group("/folio/clips")
	clips.Get("/", folioHandler.List)
	clips.Post("/refresh", folioHandler.Refresh)
	clips.Post("/groups/collapse", folioHandler.Collapse)
	clips.Post("/", rateLimiter.UploadLimit(10000), folioHandler.Upload)
	clips.Delete("/:id", rateLimiter.ActionLimit(10000), folioHandler.Remove)

	return &testApp{
		app:     app,
		redis:   redisClient,
		library: libraryService,
		folio:   folioService,
	}
}

// seedRender writes a render record directly through the service
func (ta *testApp) seedRender(t *testing.T, render *model.RenderJob) {
	t.Helper()
	if err := ta.library.SaveRender(context.Background(), render); err != nil {
		t.Fatalf("failed to seed render: %v", err)
	}
}

// seedClip writes a clip record directly through the service
func (ta *testApp) seedClip(t *testing.T, clip *model.FolioClip) {
	t.Helper()
	if err := ta.folio.SaveClip(context.Background(), clip); err != nil {
		t.Fatalf("failed to seed clip: %v", err)
	}
}

// seedRawClip writes a raw clip JSON document, bypassing the service,
// to simulate records written before the sourceKind field existed
func (ta *testApp) seedRawClip(t *testing.T, id, rawJSON string) {
	t.Helper()
	ctx := context.Background()
	if err := ta.redis.Set(ctx, "folio:clip:"+id, rawJSON, 0).Err(); err != nil {
		t.Fatalf("failed to seed raw clip: %v", err)
	}
	if err := ta.redis.SAdd(ctx, "folio:clips", id).Err(); err != nil {
		t.Fatalf("failed to index raw clip: %v", err)
	}
}

// refreshViews re-pulls both view snapshots through the API
func (ta *testApp) refreshViews(t *testing.T) {
	t.Helper()
	for _, path := range []string{"/api/library/renders/refresh", "/api/folio/clips/refresh"} {
		resp, err := doAuthRequest(t, ta.app, "POST", path, "")
		if err != nil {
			t.Fatalf("refresh %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("refresh %s: status %d", path, resp.StatusCode)
		}
	}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	claims := auth.Claims{
		UserID: "test-user-123",
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "chromox-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
