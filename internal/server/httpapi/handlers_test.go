package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophwallet/internal/common"
	"github.com/dmitrijs2005/gophwallet/internal/logging"
	"github.com/dmitrijs2005/gophwallet/internal/server/metrics"
	"github.com/dmitrijs2005/gophwallet/internal/server/models"
	"github.com/dmitrijs2005/gophwallet/internal/server/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAccounts struct {
	addReq  services.AddAccountRequest
	err     error
	view    *models.AccountView
	refInfo *models.RefInfo
	refs    []models.Referral
	wallet  string
	code    string
	got     []string
}

func (f *fakeAccounts) AddAccount(_ context.Context, req services.AddAccountRequest) error {
	f.addReq = req
	return f.err
}
func (f *fakeAccounts) GetAccount(_ context.Context, id string) (*models.AccountView, error) {
	f.got = append(f.got, id)
	return f.view, f.err
}
func (f *fakeAccounts) ConfirmEmail(_ context.Context, r string) error {
	f.got = append(f.got, r)
	return f.err
}
func (f *fakeAccounts) SetWallet(_ context.Context, r, w string) (string, error) {
	f.got = append(f.got, r, w)
	return f.code, f.err
}
func (f *fakeAccounts) ResetRequest(_ context.Context, email, captcha, origin, ip string) error {
	f.got = append(f.got, email, captcha, origin, ip)
	return f.err
}
func (f *fakeAccounts) ResetWallet(_ context.Context, r, w string) error {
	f.got = append(f.got, r, w)
	return f.err
}
func (f *fakeAccounts) GetRef(_ context.Context, code string) (*models.RefInfo, error) {
	f.got = append(f.got, code)
	return f.refInfo, f.err
}
func (f *fakeAccounts) ListRefs(_ context.Context, id string) ([]models.Referral, error) {
	f.got = append(f.got, id)
	return f.refs, f.err
}
func (f *fakeAccounts) QueryAccount(_ context.Context, email string) (string, error) {
	f.got = append(f.got, email)
	return f.wallet, f.err
}

type fakeForwarder struct {
	got     string
	msg     *models.RelayMessage
	receipt string
	err     error
}

func (f *fakeForwarder) Forward(_ context.Context, r string) (*models.RelayMessage, error) {
	f.got = r
	return f.msg, f.err
}
func (f *fakeForwarder) QueryUnlockReceipt(_ context.Context, r string) (string, error) {
	f.got = r
	return f.receipt, f.err
}

func newRouter(acc *fakeAccounts, fwd *fakeForwarder) *gin.Engine {
	return NewHandler(acc, fwd, logging.Nop(), metrics.New()).Router("/metrics")
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.1.2.3:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAddAccount(t *testing.T) {
	acc := &fakeAccounts{}
	r := newRouter(acc, &fakeForwarder{})

	w := do(r, http.MethodPost, "/account/357e44ed-bd9a-4370-b6ca-8de9847d1da8",
		`{"email":"a@b.com","recapResponse":"cap","origin":"https://w.example","refCode":"00000000"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, services.AddAccountRequest{
		AccountID:       "357e44ed-bd9a-4370-b6ca-8de9847d1da8",
		Email:           "a@b.com",
		CaptchaResponse: "cap",
		Origin:          "https://w.example",
		SourceIP:        "10.1.2.3",
		RefCode:         "00000000",
	}, acc.addReq)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestInvalidJSON(t *testing.T) {
	acc := &fakeAccounts{}
	r := newRouter(acc, &fakeForwarder{})

	w := do(r, http.MethodPost, "/confirm", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, acc.got)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{common.InvalidField("email", "x", "not valid"), http.StatusBadRequest, "Bad Request"},
		{common.Unauthorized("invalid session"), http.StatusUnauthorized, "Unauthorized"},
		{common.Forbidden("nope"), http.StatusForbidden, "Forbidden"},
		{common.Conflict("taken"), http.StatusConflict, "Conflict"},
		{common.NotFound("gone"), http.StatusNotFound, "Not Found"},
		{common.Teapot("limit"), http.StatusTeapot, "Teapot"},
		{common.EnhanceYourCalm("global"), 420, "Enhance Your Calm"},
		{common.Internal(context.Canceled, "db"), http.StatusInternalServerError, "Error"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			r := newRouter(&fakeAccounts{err: tt.err}, &fakeForwarder{})
			w := do(r, http.MethodGet, "/ref/00000000", "")

			assert.Equal(t, tt.status, w.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Kind)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal error", resp.Message)
			} else {
				assert.Equal(t, tt.err.Error(), resp.Message)
			}
		})
	}
}

func TestInvalidFieldCarriesField(t *testing.T) {
	r := newRouter(&fakeAccounts{err: common.InvalidField("email", "x", "not valid")}, &fakeForwarder{})
	w := do(r, http.MethodPost, "/query", `{"email":"x"}`)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "email", resp.Field)
}

func TestRoutes(t *testing.T) {
	acc := &fakeAccounts{
		view:    &models.AccountView{ID: "357e44ed-bd9a-4370-b6ca-8de9847d1da8", CreatedAt: time.Unix(0, 0).UTC(), HasWallet: true},
		refInfo: &models.RefInfo{},
		refs:    []models.Referral{{Code: "1a2b3c4d", Owner: "357e44ed-bd9a-4370-b6ca-8de9847d1da8", Allowance: 3}},
		wallet:  `{"address":"0x01"}`,
		code:    "1a2b3c4d",
	}
	fwd := &fakeForwarder{
		msg:     &models.RelayMessage{From: "0x90", To: "0x15", Gas: 25201, Data: "0xcafe", SignerAddr: "0x70"},
		receipt: "unlock",
	}
	r := newRouter(acc, fwd)

	tests := []struct {
		method, path, body string
		status             int
		want               string
	}{
		{http.MethodGet, "/account/357e44ed-bd9a-4370-b6ca-8de9847d1da8", "", http.StatusOK,
			`{"id":"357e44ed-bd9a-4370-b6ca-8de9847d1da8","createdAt":"1970-01-01T00:00:00Z","hasWallet":true}`},
		{http.MethodGet, "/account/357e44ed-bd9a-4370-b6ca-8de9847d1da8/refs", "", http.StatusOK,
			`{"refs":[{"code":"1a2b3c4d","owner":"357e44ed-bd9a-4370-b6ca-8de9847d1da8","allowance":3}]}`},
		{http.MethodGet, "/ref/00000000", "", http.StatusOK, `{}`},
		{http.MethodPost, "/wallet", `{"sessionReceipt":"r","wallet":"w"}`, http.StatusOK, `{"refCode":"1a2b3c4d"}`},
		{http.MethodPost, "/query", `{"email":"a@b.com"}`, http.StatusOK, `{"wallet":"{\"address\":\"0x01\"}"}`},
		{http.MethodPost, "/forward", `{"forwardReceipt":"f"}`, http.StatusAccepted,
			`{"from":"0x90","to":"0x15","gas":25201,"data":"0xcafe","signerAddr":"0x70"}`},
		{http.MethodPost, "/unlock", `{"unlockRequest":"u"}`, http.StatusOK, `{"receipt":"unlock"}`},
		{http.MethodGet, "/healthz", "", http.StatusOK, `{"status":"OK"}`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}

	for _, tt := range []struct {
		method, path, body string
		status             int
	}{
		{http.MethodPost, "/confirm", `{"sessionReceipt":"r"}`, http.StatusNoContent},
		{http.MethodPut, "/wallet", `{"sessionReceipt":"r","wallet":"w"}`, http.StatusNoContent},
		{http.MethodPost, "/reset", `{"email":"a@b.com","recapResponse":"c","origin":"o"}`, http.StatusAccepted},
	} {
		w := do(r, tt.method, tt.path, tt.body)
		assert.Equal(t, tt.status, w.Code, tt.path)
	}
	assert.Equal(t, []string{"a@b.com", "c", "o", "10.1.2.3"}, acc.got[len(acc.got)-4:])
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(&fakeAccounts{refInfo: &models.RefInfo{}}, &fakeForwarder{})
	do(r, http.MethodGet, "/ref/00000000", "")

	w := do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `gophwallet_requests_total{operation="GET /ref/:refCode",outcome="OK",transport="http"} 1`)
}

func TestServerRun_StopsOnCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", newRouter(&fakeAccounts{}, &fakeForwarder{}), logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
