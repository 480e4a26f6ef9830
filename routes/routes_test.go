package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"proposal-management-api/controllers"
	"proposal-management-api/models"
	"proposal-management-api/repositories/repotest"
	"proposal-management-api/storage"
	"proposal-management-api/utils"
)

const password = "rahasia123"

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

type apiResponse struct {
	Code int
	Body map[string]any
}

func (r apiResponse) id(key, field string) uint {
	obj, _ := r.Body[key].(map[string]any)
	v, _ := obj[field].(float64)
	return uint(v)
}

func newTestAPI(t *testing.T) (*gin.Engine, *repotest.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repotest.NewStore()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	for _, u := range []models.User{
		{UserID: 1, Email: "admin@univ.ac.id", RoleID: models.RoleAdmin},
		{UserID: 10, Email: "dosen@univ.ac.id", RoleID: models.RoleDosen},
		{UserID: 11, Email: "siti@student.univ.ac.id", RoleID: models.RoleMahasiswa},
		{UserID: 20, Email: "rina@univ.ac.id", RoleID: models.RoleReviewer},
		{UserID: 30, Email: "other@univ.ac.id", RoleID: models.RoleDosen},
	} {
		u.Password, u.IsActive = hash, true
		store.PutUser(u)
	}
	store.PutScheme(models.Scheme{SchemeID: 1, Code: "PDP", Name: "Penelitian Dosen Pemula", IsActive: true})

	files, err := storage.NewLocalStore(t.TempDir(), 1<<20)
	require.NoError(t, err)
	deps := controllers.NewDependencies(store, files, nil, zap.NewNop(), nil)
	deps.JWTSecret = "routes-test-secret"
	deps.TokenTTL = time.Hour
	deps.MaxUploadBytes = 1 << 20

	router := gin.New()
	SetupRoutes(router, deps)
	return router, store
}

func (c *apiClient) do(method, path string, body any) apiResponse {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

func (c *apiClient) send(req *http.Request) apiResponse {
	c.t.Helper()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	out := apiResponse{Code: w.Code}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out.Body), w.Body.String())
	}
	return out
}

func login(t *testing.T, router *gin.Engine, email string) *apiClient {
	t.Helper()
	anon := &apiClient{t: t, router: router}
	res := anon.do(http.MethodPost, "/api/v1/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	token, _ := res.Body["token"].(string)
	require.NotEmpty(t, token)
	return &apiClient{t: t, router: router, token: token}
}

func TestLoginAndProfile(t *testing.T) {
	router, _ := newTestAPI(t)
	anon := &apiClient{t: t, router: router}

	res := anon.do(http.MethodPost, "/api/v1/login", map[string]string{"email": "dosen@univ.ac.id", "password": "salah"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = anon.do(http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	dosen := login(t, router, "dosen@univ.ac.id")
	res = dosen.do(http.MethodGet, "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, uint(10), res.id("user", "user_id"))

	res = anon.do(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestProposalWorkflowOverHTTP(t *testing.T) {
	router, _ := newTestAPI(t)
	dosen := login(t, router, "dosen@univ.ac.id")
	student := login(t, router, "siti@student.univ.ac.id")
	admin := login(t, router, "admin@univ.ac.id")
	reviewer := login(t, router, "rina@univ.ac.id")
	other := login(t, router, "other@univ.ac.id")

	res := reviewer.do(http.MethodPost, "/api/v1/proposals", map[string]any{"title": "x", "year": 2025, "scheme_id": 1})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = dosen.do(http.MethodPost, "/api/v1/proposals", map[string]any{"title": "", "year": 2025, "scheme_id": 1})
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "VALIDATION", res.Body["code"])

	res = dosen.do(http.MethodPost, "/api/v1/proposals", map[string]any{
		"title": "Sistem peringatan dini banjir", "year": 2025, "scheme_id": 1, "keywords": []string{"iot"},
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	pid := res.id("proposal", "proposal_id")
	base := fmt.Sprintf("/api/v1/proposals/%d", pid)

	res = other.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = dosen.do(http.MethodPost, base+"/members", map[string]any{"user_id": 11})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	memberID := res.id("member", "member_id")

	res = dosen.do(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, "INCOMPLETE_TEAM", res.Body["code"])

	res = dosen.do(http.MethodPut, fmt.Sprintf("%s/members/%d/approve", base, memberID), nil)
	require.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "not_invitee", res.Body["reason"])

	res = student.do(http.MethodPut, fmt.Sprintf("%s/members/%d/approve", base, memberID), nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body)

	res = dosen.do(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body)

	res = admin.do(http.MethodPut, base+"/reviewer", map[string]any{"reviewer_id": 20})
	require.Equal(t, http.StatusOK, res.Code, res.Body)

	res = reviewer.do(http.MethodGet, "/api/v1/reviews/pending", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 1, res.Body["total"])

	review := map[string]any{"proposal_id": pid, "score": 82, "recommendation": "layak"}
	res = reviewer.do(http.MethodPost, "/api/v1/reviews", review)
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	res = reviewer.do(http.MethodPost, "/api/v1/reviews", review)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = student.do(http.MethodPatch, base+"/status", map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = reviewer.do(http.MethodPatch, base+"/status", map[string]any{"status": "completed"})
	require.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "ILLEGAL_TRANSITION", res.Body["code"])

	res = reviewer.do(http.MethodPatch, base+"/status", map[string]any{"status": "Disetujui", "comment": "Lanjut"})
	require.Equal(t, http.StatusOK, res.Code, res.Body)

	res = dosen.do(http.MethodGet, "/api/v1/reviews/stats", nil)
	require.Equal(t, http.StatusOK, res.Code)
	stats, _ := res.Body["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["layak"])

	res = dosen.do(http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 4, res.Body["total"])

	res = admin.do(http.MethodPost, base+"/complete", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body)

	res = dosen.do(http.MethodGet, "/api/v1/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotZero(t, res.Body["unread"])
}

func TestDocumentEndpoints(t *testing.T) {
	router, _ := newTestAPI(t)
	dosen := login(t, router, "dosen@univ.ac.id")
	other := login(t, router, "other@univ.ac.id")

	res := dosen.do(http.MethodPost, "/api/v1/proposals", map[string]any{"title": "Lampiran", "year": 2025, "scheme_id": 1})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	pid := res.id("proposal", "proposal_id")

	upload := func(c *apiClient, name string, content []byte) apiResponse {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("document_type", "proposal"))
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/proposals/%d/documents", pid), &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return c.send(req)
	}

	pdf := []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n")
	res = upload(dosen, "proposal.pdf", pdf)
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	docID := res.id("document", "document_id")

	res = upload(dosen, "proposal.pdf", []byte("plain text pretending"))
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = upload(other, "proposal.pdf", pdf)
	assert.Equal(t, http.StatusForbidden, res.Code)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/documents/%d/download", docID), nil)
	req.Header.Set("Authorization", "Bearer "+dosen.token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pdf, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="proposal.pdf"`)

	res = other.do(http.MethodDelete, fmt.Sprintf("/api/v1/documents/%d", docID), nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = dosen.do(http.MethodDelete, fmt.Sprintf("/api/v1/documents/%d", docID), nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = dosen.do(http.MethodGet, fmt.Sprintf("/api/v1/proposals/%d/documents", pid), nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 0, res.Body["total"])
}

func TestBadParamsAndUnknownRoutes(t *testing.T) {
	router, _ := newTestAPI(t)
	dosen := login(t, router, "dosen@univ.ac.id")

	assert.Equal(t, http.StatusBadRequest, dosen.do(http.MethodGet, "/api/v1/proposals/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, dosen.do(http.MethodGet, "/api/v1/proposals?status=archived", nil).Code)
	assert.Equal(t, http.StatusBadRequest, dosen.do(http.MethodGet, "/api/v1/reviews?recommendation=maybe", nil).Code)
	assert.Equal(t, http.StatusNotFound, dosen.do(http.MethodGet, "/api/v1/nope", nil).Code)

	res := dosen.do(http.MethodGet, "/api/v1/proposals?status=draft,revisi", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.EqualValues(t, 0, res.Body["total"])
}
