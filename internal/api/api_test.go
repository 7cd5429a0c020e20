package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/swissqr/internal/admin"
	"github.com/celerix-dev/swissqr/internal/dal"
	"github.com/celerix-dev/swissqr/internal/gate"
	"github.com/celerix-dev/swissqr/internal/qrbill"
	"github.com/celerix-dev/swissqr/internal/testutil"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

type fakeEngine struct {
	codes []string
	err   error
	last  qrbill.Format
}

func (e *fakeEngine) Render(_ context.Context, b qrbill.Bill, f qrbill.Format) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.last = f
	return []byte(fmt.Sprintf("%s:%s:%.2f", f.Graphics, b.Currency, b.Amount)), nil
}

func (e *fakeEngine) Decode(context.Context, []byte, string) ([]string, error) {
	return e.codes, e.err
}

type testEnv struct {
	router *gin.Engine
	svc    *admin.Service
	stores *dal.Stores
	engine *fakeEngine
	tokens map[string]schema.TokenID
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stores, err := dal.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	l := testutil.MakeNoopLogger()
	svc := admin.NewService(stores, l)
	engine := &fakeEngine{}
	h := &Handler{Admin: svc, Renderer: engine, Decoder: engine, Logger: l, Started: time.Now()}
	g := gate.New(stores.Tokens, l)

	env := &testEnv{
		router: NewRouter(h, g, stores.Logs, l),
		svc:    svc,
		stores: stores,
		engine: engine,
		tokens: map[string]schema.TokenID{},
	}

	u, err := svc.CreateUser(admin.NewUser{Email: "ops@example.ch", Password: "password123", Confirmed: true})
	require.NoError(t, err)
	for name, perms := range map[string][]schema.Permission{
		"create": {schema.PermissionCreate},
		"scan":   {schema.PermissionScan},
		"admin":  {schema.PermissionAdmin},
	} {
		tok, err := svc.CreateToken(u.ID, perms...)
		require.NoError(t, err)
		env.tokens[name] = tok.ID
	}
	return env
}

func (e *testEnv) do(method, path, token, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set(gate.DefaultHeader, "Bearer "+string(e.tokens[token]))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func errorReason(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

const validBill = `{
	"amount": 199.95,
	"currency": "CHF",
	"account": "CH4431999123000889012",
	"creditor": {"type": "structured", "name": "Robert Schneider AG", "countryCode": "CH",
		"street": "Rue du Lac", "houseNo": "1268", "postalCode": "2501", "town": "Biel"},
	"debtor": {"type": "unstructured", "name": "Pia Rutschmann", "countryCode": "CH",
		"addressLine2": "9400 Rorschach"}
}`

func TestStatus(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/status", "", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestCreateAndConfirmUser(t *testing.T) {
	env := setupTestRouter(t)

	body := []byte(`{"email":"anna@example.ch","password":"password123"}`)
	w := env.do(http.MethodPost, "/api/user/create", "", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		ID schema.UserID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	u, ok := env.stores.Users.Get(created.ID)
	require.True(t, ok)
	assert.False(t, u.Confirmed)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/user/confirm/%s/%d", u.ID, u.Nonce()+1), "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/user/confirm/%s/abc", u.ID), "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/user/confirm/missing/%d", u.Nonce()), "", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/user/confirm/%s/%d", u.ID, u.Nonce()), "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	u, _ = env.stores.Users.Get(u.ID)
	assert.True(t, u.Confirmed)

	w = env.do(http.MethodGet, fmt.Sprintf("/api/user/confirm/%s/%d", u.ID, u.Nonce()), "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateUser_Invalid(t *testing.T) {
	env := setupTestRouter(t)

	for _, body := range []string{
		`{"email":"not-an-email","password":"password123"}`,
		`{"email":"anna@example.ch","password":"short"}`,
		`{"email":"ops@example.ch","password":"password123"}`,
		`{"email":"anna@example.ch"}`,
		`not json`,
	} {
		w := env.do(http.MethodPost, "/api/user/create", "", "application/json", []byte(body))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, ReasonInvalidRequest, errorReason(t, w), body)
	}
}

func TestGenerateQR(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/public/qr/generate/qr_code_only?format=pdf", "create", "application/json", []byte(validBill))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "PDF:CHF:199.95", w.Body.String())
	assert.Equal(t, qrbill.SizeQRCodeOnly, env.engine.last.Size)

	entries := env.svc.AccessLogs(admin.AccessFilter{})
	require.Len(t, entries, 1)
	assert.Equal(t, env.tokens["create"], entries[0].TokenID)
	assert.Equal(t, http.StatusOK, entries[0].Status)
}

func TestGenerateQR_Rejections(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/public/qr/generate", "", "application/json", []byte(validBill))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/public/qr/generate", "scan", "application/json", []byte(validBill))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, gate.ReasonInsufficientPermissions, errorReason(t, w))

	noCurrency := strings.Replace(validBill, `"currency": "CHF",`, "", 1)
	w = env.do(http.MethodPost, "/api/public/qr/generate", "create", "application/json", []byte(noCurrency))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	noTown := strings.Replace(validBill, `"town": "Biel"`, `"town": ""`, 1)
	w = env.do(http.MethodPost, "/api/public/qr/generate", "create", "application/json", []byte(noTown))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/public/qr/generate/POSTER", "create", "application/json", []byte(validBill))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Only requests carrying a known token are recorded.
	assert.Equal(t, 4, env.stores.Logs.Size())
}

func TestGenerateQR_EngineErrors(t *testing.T) {
	env := setupTestRouter(t)

	env.engine.err = qrbill.ErrEngineUnavailable
	w := env.do(http.MethodPost, "/api/public/qr/generate", "create", "application/json", []byte(validBill))
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	env.engine.err = fmt.Errorf("%w: reference", qrbill.ErrInvalidBill)
	w = env.do(http.MethodPost, "/api/public/qr/generate", "create", "application/json", []byte(validBill))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.engine.err = errors.New("boom")
	w = env.do(http.MethodPost, "/api/public/qr/generate", "create", "application/json", []byte(validBill))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGenerateSimpleQR(t *testing.T) {
	env := setupTestRouter(t)

	q := "amount=10&currency=EUR&account=CH4431999123000889012" +
		"&debtor_name=Pia&debtor_country_code=CH&debtor_address_line_2=9400+Rorschach" +
		"&creditor_name=Robert&creditor_country_code=CH&creditor_address_line_2=2501+Biel" +
		"&format=pdf"
	w := env.do(http.MethodGet, "/api/public/qr/simple/A4_PORTRAIT_SHEET?"+q, "create", "", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "PNG:EUR:10.00", w.Body.String())
	assert.Equal(t, 297.0, env.engine.last.Height)

	w = env.do(http.MethodGet, "/api/public/qr/simple/A4_PORTRAIT_SHEET?amount=10", "create", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanQR(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/api/public/qr/scan", "scan", "image/gif", []byte("GIF89a"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ReasonUnsupportedType, errorReason(t, w))

	w = env.do(http.MethodPost, "/api/public/qr/scan", "scan", "image/png", []byte("png"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.engine.codes = []string{"SPC\n0200\n1"}
	w = env.do(http.MethodPost, "/api/public/qr/scan", "scan", "application/pdf", []byte("%PDF"))
	require.Equal(t, http.StatusOK, w.Code)
	var codes []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &codes))
	assert.Equal(t, []string{"SPC\n0200\n1"}, codes)

	env.engine.err = qrbill.ErrEngineUnavailable
	w = env.do(http.MethodPost, "/api/public/qr/scan", "scan", "image/jpeg", []byte("jpg"))
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = env.do(http.MethodPost, "/api/public/qr/scan", "create", "image/jpeg", []byte("jpg"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/admin/users", "scan", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/api/admin/users", "admin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "ops@example.ch", users[0]["email"])
	assert.NotContains(t, users[0], "password")

	w = env.do(http.MethodGet, "/api/admin/tokens?active=true", "admin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tokens []schema.Token
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	assert.Len(t, tokens, 3)

	w = env.do(http.MethodGet, "/api/admin/logs?status=403", "admin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []schema.Access
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, env.tokens["scan"], entries[0].TokenID)

	w = env.do(http.MethodGet, "/api/admin/logs/summary", "admin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary []admin.AccessSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Len(t, summary, 2)

	w = env.do(http.MethodGet, "/api/admin/logs?after=yesterday", "admin", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/admin/logs?limit=many", "admin", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNoRouteAndCORS(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/nothing", "", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ReasonNotFound, errorReason(t, w))

	w = env.do(http.MethodOptions, "/api/public/qr/scan", "", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), gate.DefaultHeader)
}

func TestAdminMutations(t *testing.T) {
	env := setupTestRouter(t)

	body := []byte(`{"email":"beat@example.ch","password":"password123","description":"billing"}`)
	w := env.do(http.MethodPost, "/api/admin/users", "scan", "application/json", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/admin/users", "admin", "application/json", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var beat schema.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &beat))
	assert.True(t, beat.Active)
	assert.True(t, beat.Confirmed)
	assert.Equal(t, "billing", beat.Description)

	w = env.do(http.MethodPost, "/api/admin/users", "admin", "application/json", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/admin/tokens", "admin", "application/json",
		[]byte(fmt.Sprintf(`{"userId":%q,"permissions":["QR_CREATE"]}`, beat.ID)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tok schema.Token
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	assert.Equal(t, beat.ID, tok.UserID)
	assert.Equal(t, schema.NewPermissionSet(schema.PermissionCreate), tok.Permissions)
	env.tokens["beat"] = tok.ID

	for _, tc := range []struct {
		body string
		code int
	}{
		{fmt.Sprintf(`{"userId":%q,"permissions":[]}`, beat.ID), http.StatusBadRequest},
		{fmt.Sprintf(`{"userId":%q,"permissions":["ROOT"]}`, beat.ID), http.StatusBadRequest},
		{`{"userId":"missing","permissions":["ADMIN"]}`, http.StatusNotFound},
	} {
		w = env.do(http.MethodPost, "/api/admin/tokens", "admin", "application/json", []byte(tc.body))
		assert.Equal(t, tc.code, w.Code, tc.body)
	}

	w = env.do(http.MethodPost, "/api/public/qr/generate", "beat", "application/json", []byte(validBill))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/admin/tokens/"+string(tok.ID)+"/invalidate", "admin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var revoked schema.Token
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &revoked))
	assert.False(t, revoked.Active)

	// The revocation applies to the very next request.
	w = env.do(http.MethodPost, "/api/public/qr/generate", "beat", "application/json", []byte(validBill))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, gate.ReasonTokenInvalidated, errorReason(t, w))

	w = env.do(http.MethodPost, "/api/admin/tokens/missing/invalidate", "admin", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminInvalidateUser_Cascades(t *testing.T) {
	env := setupTestRouter(t)

	beat, err := env.svc.CreateUser(admin.NewUser{Email: "beat@example.ch", Password: "password123", Confirmed: true})
	require.NoError(t, err)
	for _, name := range []string{"beat-create", "beat-scan"} {
		tok, err := env.svc.CreateToken(beat.ID, schema.PermissionCreate, schema.PermissionScan)
		require.NoError(t, err)
		env.tokens[name] = tok.ID
	}

	w := env.do(http.MethodPost, "/api/admin/users/"+string(beat.ID)+"/invalidate", "admin", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		User   schema.User `json:"user"`
		Tokens int         `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.User.Active)
	assert.Equal(t, 2, res.Tokens)

	w = env.do(http.MethodPost, "/api/public/qr/generate", "beat-create", "application/json", []byte(validBill))
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(http.MethodPost, "/api/public/qr/scan", "beat-scan", "image/png", []byte("png"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Tokens of other users are untouched.
	w = env.do(http.MethodPost, "/api/public/qr/generate", "create", "application/json", []byte(validBill))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/admin/users/missing/invalidate", "admin", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScanQR_TooLarge(t *testing.T) {
	env := setupTestRouter(t)
	env.engine.codes = []string{"SPC"}

	w := env.do(http.MethodPost, "/api/public/qr/scan", "scan", "image/png", make([]byte, maxScanSize+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, ReasonTooLarge, errorReason(t, w))

	w = env.do(http.MethodPost, "/api/public/qr/scan", "scan", "image/png", make([]byte, maxScanSize))
	assert.Equal(t, http.StatusOK, w.Code)
}
