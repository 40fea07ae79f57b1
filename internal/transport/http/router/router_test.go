package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"nexbid/internal/core/auth"
	"nexbid/internal/core/database"
	"nexbid/internal/core/mailer"
	"nexbid/internal/domain"
	"nexbid/internal/repo"
	"nexbid/internal/service"
	"nexbid/internal/storage"
	"nexbid/internal/transport/http/handler"
	"nexbid/internal/validation"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Name() string { return "recording" }

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type testApp struct {
	t        *testing.T
	engine   *gin.Engine
	mail     *recordingMailer
	notifier *service.Notifier
}

type appOpts struct {
	mailErr error
	ready   handler.Pinger
}

func newApp(t *testing.T, o appOpts) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Setup()

	db, err := database.NewGorm(database.Opts{
		Driver:   "sqlite",
		DSN:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))
	t.Cleanup(func() { _ = database.Close(db) })

	dir := filepath.Join(t.TempDir(), "uploads")
	files, err := storage.NewLocal(dir, 1<<20)
	require.NoError(t, err)

	log := zap.NewNop()
	mail := &recordingMailer{err: o.mailErr}
	notifier := service.NewNotifier(mail, mailer.MustTemplates("http://localhost:3000"), log, time.Second)
	repos := repo.NewRepositories(db)
	market := service.NewMarketplace(repos, repo.NewUnitOfWork(db), files, notifier, log)
	authSvc := service.NewAuthService(repos.Users, auth.NewJWTer("test-secret", "nexbid", time.Hour),
		auth.NewMemoryDenylist(), nil, time.Minute, bcrypt.MinCost, log)

	ready := o.ready
	if ready == nil {
		ready = handler.PingFunc(func(ctx context.Context) error { return database.Ping(ctx, db) })
	}
	reg := &Registry{}
	reg.Register(
		handler.NewProjectHandler(market),
		handler.NewAuthHandler(authSvc, handler.CookieOptions{Name: "accessToken"}),
		handler.NewHealthHandler("NexBid API", map[string]handler.Pinger{"database": ready}),
	)
	e := NewAPIEngine(log, authSvc, "accessToken", reg, Options{
		Mode:      gin.TestMode,
		Expose:    true,
		UploadDir: dir,
		Web: fstest.MapFS{
			"index.html": {Data: []byte("<html>nexbid</html>")},
			"app.js":     {Data: []byte("console.log(1)")},
		},
	})
	return &testApp{t: t, engine: e, mail: mail, notifier: notifier}
}

func (a *testApp) send(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.send(req)
}

func (a *testApp) upload(projectID, field, name string, data []byte, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(a.t, err)
	_, err = fw.Write(data)
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/projects/"+projectID+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return a.send(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

// signup 返回 token 和用户 id
func (a *testApp) signup(name, email string, role domain.Role) (string, string) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/signup", gin.H{
		"name": name, "email": email, "password": "secret123", "role": role,
	}, "")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	m := decode(a.t, w)
	return m["token"].(string), m["user"].(map[string]any)["id"].(string)
}

func (a *testApp) createProject(token string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/projects", gin.H{
		"title": "Landing page", "description": "Marketing site",
		"minBudget": 500, "maxBudget": 1500,
		"deadline": time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339),
	}, token)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(a.t, w)["id"].(string)
}

func (a *testApp) bid(token, projectID string, amount int) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/projects/"+projectID+"/bids",
		gin.H{"amount": amount, "etaDays": 7, "message": "I can do it"}, token)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(a.t, w)["id"].(string)
}

func TestHealthAndReady(t *testing.T) {
	a := newApp(t, appOpts{})

	w := a.do(http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	m := decode(t, w)
	assert.Equal(t, "ok", m["status"])
	assert.Equal(t, "NexBid API", m["service"])
	assert.NotEmpty(t, m["timestamp"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = a.do(http.MethodGet, "/api/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	down := newApp(t, appOpts{ready: handler.PingFunc(func(context.Context) error {
		return errors.New("connection refused")
	})})
	w = down.do(http.MethodGet, "/api/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "database unavailable", decode(t, w)["error"])
}

func TestMarketplaceFlow(t *testing.T) {
	a := newApp(t, appOpts{})
	buyer, buyerID := a.signup("Bea", "bea@example.com", domain.RoleBuyer)
	seller, sellerID := a.signup("Sam", "sam@example.com", domain.RoleSeller)
	other, _ := a.signup("Olga", "olga@example.com", domain.RoleSeller)

	pid := a.createProject(buyer)

	// 列表带分页和 _count
	w := a.do(http.MethodGet, "/api/projects?status=PENDING&page=1&limit=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	m := decode(t, w)
	projects := m["projects"].([]any)
	require.Len(t, projects, 1)
	assert.Equal(t, pid, projects[0].(map[string]any)["id"])
	assert.EqualValues(t, 1, m["pagination"].(map[string]any)["total"])

	bidID := a.bid(seller, pid, 900)
	a.bid(other, pid, 1000)

	w = a.do(http.MethodPost, "/api/projects/"+pid+"/bids",
		gin.H{"amount": 800, "etaDays": 5, "message": "again"}, seller)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/projects/"+pid+"/bids", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var bids []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bids))
	assert.Len(t, bids, 2)

	// 上传到 PENDING 项目
	w = a.upload(pid, "deliverable", "report.pdf", pdfBytes, seller)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/api/projects/"+pid+"/accept", gin.H{"bidId": bidID}, buyer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m = decode(t, w)
	assert.Equal(t, "Bid accepted successfully", m["message"])
	assert.Equal(t, "IN_PROGRESS", m["project"].(map[string]any)["status"])
	assert.Equal(t, sellerID, m["project"].(map[string]any)["sellerId"])

	w = a.do(http.MethodPost, "/api/projects/"+pid+"/accept", gin.H{"bidId": bidID}, buyer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 没有交付物不能完成
	w = a.do(http.MethodPatch, "/api/projects/"+pid+"/status", gin.H{"status": "COMPLETED"}, buyer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot complete project without uploading deliverable", decode(t, w)["error"])

	// 未被指派的卖家不能上传
	w = a.upload(pid, "deliverable", "report.pdf", pdfBytes, other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.upload(pid, "file", "report.pdf", pdfBytes, seller)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m = decode(t, w)
	file := m["file"].(map[string]any)
	assert.Equal(t, "report.pdf", file["originalName"])
	assert.Equal(t, "application/pdf", file["mimeType"])
	url := file["url"].(string)

	w = a.do(http.MethodGet, url, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pdfBytes, w.Body.Bytes())

	w = a.do(http.MethodPatch, "/api/projects/"+pid+"/status", gin.H{"status": "COMPLETED"}, buyer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "COMPLETED", decode(t, w)["status"])

	w = a.do(http.MethodPost, "/api/projects/"+pid+"/review", gin.H{"rating": 5, "comment": "Great"}, buyer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, sellerID, decode(t, w)["sellerId"])

	w = a.do(http.MethodPost, "/api/projects/"+pid+"/review", gin.H{"rating": 4, "comment": "Again"}, buyer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/projects/"+pid, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	m = decode(t, w)
	assert.Equal(t, buyerID, m["buyerId"])
	assert.Len(t, m["bids"].([]any), 2)
	assert.Len(t, m["reviews"].([]any), 1)

	// 接受通知 + 完成通知
	a.notifier.Wait()
	assert.Equal(t, 2, a.mail.count())
}

func TestProjectRoundTrip(t *testing.T) {
	a := newApp(t, appOpts{})
	buyerTok, buyerID := a.signup("Buyer", "roundtrip@nexbid.test", domain.RoleBuyer)

	w := a.do(http.MethodPost, "/api/projects", gin.H{
		"title": "Mobile app redesign", "description": "Refresh the onboarding screens",
		"minBudget": 2500, "maxBudget": 4000,
		"deadline": "2031-03-15T18:30:00+05:30",
	}, buyerTok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = a.do(http.MethodGet, "/api/projects/"+id, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode(t, w)
	assert.Equal(t, "Mobile app redesign", m["title"])
	assert.Equal(t, "Refresh the onboarding screens", m["description"])
	assert.EqualValues(t, 2500, m["minBudget"])
	assert.EqualValues(t, 4000, m["maxBudget"])
	assert.Equal(t, "PENDING", m["status"])
	assert.Equal(t, buyerID, m["buyerId"])

	deadline, err := time.Parse(time.RFC3339, m["deadline"].(string))
	require.NoError(t, err)
	assert.True(t, deadline.Equal(time.Date(2031, 3, 15, 13, 0, 0, 0, time.UTC)), deadline)

	bids, ok := m["bids"].([]any)
	require.True(t, ok, "bids must be an array: %s", w.Body.String())
	assert.Empty(t, bids)
	reviews, ok := m["reviews"].([]any)
	require.True(t, ok, "reviews must be an array: %s", w.Body.String())
	assert.Empty(t, reviews)
	assert.EqualValues(t, 0, m["_count"].(map[string]any)["bids"])

	w = a.do(http.MethodGet, "/api/projects", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	item := decode(t, w)["projects"].([]any)[0].(map[string]any)
	assert.Equal(t, id, item["id"])
	assert.Equal(t, []any{}, item["bids"])
}

func TestMailFailureDoesNotChangeResponse(t *testing.T) {
	a := newApp(t, appOpts{mailErr: errors.New("smtp down")})
	buyer, _ := a.signup("Bea", "bea@example.com", domain.RoleBuyer)
	seller, _ := a.signup("Sam", "sam@example.com", domain.RoleSeller)
	pid := a.createProject(buyer)
	bidID := a.bid(seller, pid, 900)

	w := a.do(http.MethodPost, "/api/projects/"+pid+"/accept", gin.H{"bidId": bidID}, buyer)
	require.Equal(t, http.StatusOK, w.Code)
	w = a.upload(pid, "deliverable", "notes.txt", []byte("final notes\n"), seller)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = a.do(http.MethodPatch, "/api/projects/"+pid+"/status", gin.H{"status": "COMPLETED"}, seller)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	a.notifier.Wait()
	assert.Equal(t, 2, a.mail.count())
}

func TestValidationErrors(t *testing.T) {
	a := newApp(t, appOpts{})
	buyer, _ := a.signup("Bea", "bea@example.com", domain.RoleBuyer)

	w := a.do(http.MethodPost, "/api/projects", gin.H{
		"title": "Too cheap", "description": "d", "minBudget": 2000, "maxBudget": 1000,
		"deadline": "2030-01-01T00:00:00Z",
	}, buyer)
	require.Equal(t, http.StatusBadRequest, w.Code)
	m := decode(t, w)
	assert.Equal(t, "Validation failed", m["error"])
	assert.Contains(t, m["details"], "maxBudget")

	w = a.do(http.MethodGet, "/api/projects/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/projects/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Project not found", decode(t, w)["error"])

	w = a.do(http.MethodGet, "/api/projects?limit=500", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	pid := a.createProject(buyer)
	seller, _ := a.signup("Sam", "sam@example.com", domain.RoleSeller)
	a.bid(seller, pid, 900)
	// 卖家的 bid 之外随便给个 id
	w = a.do(http.MethodPost, "/api/projects/"+pid+"/accept", gin.H{"bidId": uuid.NewString()}, buyer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthAndRoles(t *testing.T) {
	a := newApp(t, appOpts{})
	buyer, _ := a.signup("Bea", "bea@example.com", domain.RoleBuyer)
	seller, _ := a.signup("Sam", "sam@example.com", domain.RoleSeller)

	w := a.do(http.MethodPost, "/api/projects", gin.H{"title": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Access token required", decode(t, w)["error"])

	w = a.do(http.MethodPost, "/api/projects", gin.H{"title": "x"}, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/api/projects", gin.H{"title": "x"}, seller)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "BUYER role required", decode(t, w)["error"])

	pid := a.createProject(buyer)
	w = a.do(http.MethodPost, "/api/projects/"+pid+"/bids",
		gin.H{"amount": 900, "etaDays": 7, "message": "m"}, buyer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/api/auth/signup", gin.H{
		"name": "Dup", "email": "BEA@example.com", "password": "secret123", "role": "BUYER",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User with this email already exists", decode(t, w)["error"])

	w = a.do(http.MethodPost, "/api/auth/login", gin.H{"email": "bea@example.com", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode(t, w)["error"])
}

func TestCookieSessionAndLogout(t *testing.T) {
	a := newApp(t, appOpts{})
	a.signup("Bea", "bea@example.com", domain.RoleBuyer)

	w := a.do(http.MethodPost, "/api/auth/login", gin.H{"email": "bea@example.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "accessToken" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	me := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: cookie.Value})
		return a.send(req)
	}
	w = me()
	require.Equal(t, http.StatusOK, w.Code)
	m := decode(t, w)
	assert.Equal(t, "bea@example.com", m["email"])
	assert.NotContains(t, m, "passwordHash")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: cookie.Value})
	w = a.send(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out successfully", decode(t, w)["message"])

	w = me()
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has been revoked", decode(t, w)["error"])
}

func TestNotFoundAndSPA(t *testing.T) {
	a := newApp(t, appOpts{})

	w := a.do(http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route not found", decode(t, w)["error"])

	w = a.do(http.MethodGet, "/projects/123", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nexbid")

	w = a.do(http.MethodGet, "/app.js", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "console.log")

	w = a.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nexbid_http_requests_total")
}
