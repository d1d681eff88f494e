package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gophwallet/internal/common"
	"github.com/dmitrijs2005/gophwallet/internal/server/services"
)

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// StatusEnhanceYourCalm is the non-standard status returned when the global
// signup limit is reached.
const StatusEnhanceYourCalm = 420

var kindStatus = map[common.Kind]int{
	common.KindBadRequest:      http.StatusBadRequest,
	common.KindUnauthorized:    http.StatusUnauthorized,
	common.KindForbidden:       http.StatusForbidden,
	common.KindConflict:        http.StatusConflict,
	common.KindNotFound:        http.StatusNotFound,
	common.KindTeapot:          http.StatusTeapot,
	common.KindEnhanceYourCalm: StatusEnhanceYourCalm,
	common.KindInternal:        http.StatusInternalServerError,
}

func StatusOf(k common.Kind) int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	k := common.KindOf(err)
	resp := errorResponse{Kind: k.String(), Message: err.Error()}
	var e *common.Error
	if k == common.KindInternal {
		resp.Message = "internal error"
	} else if errors.As(err, &e) {
		resp.Field = e.Field
	}
	c.AbortWithStatusJSON(StatusOf(k), resp)
}

type signupRequest struct {
	Email         string `json:"email"`
	RecapResponse string `json:"recapResponse"`
	Origin        string `json:"origin"`
	RefCode       string `json:"refCode"`
}

type sessionRequest struct {
	SessionReceipt string `json:"sessionReceipt"`
	Wallet         string `json:"wallet"`
}

type resetRequest struct {
	Email         string `json:"email"`
	RecapResponse string `json:"recapResponse"`
	Origin        string `json:"origin"`
}

type queryRequest struct {
	Email string `json:"email"`
}

type forwardRequest struct {
	ForwardReceipt string `json:"forwardReceipt"`
}

type unlockRequest struct {
	UnlockRequest string `json:"unlockRequest"`
}

// bind decodes the JSON body, failing the request with 400 when it is not
// valid JSON.
func (h *Handler) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		h.fail(c, common.BadRequest("invalid payload: %s.", err.Error()))
		return false
	}
	return true
}

func (h *Handler) AddAccount(c *gin.Context) {
	var req signupRequest
	if !h.bind(c, &req) {
		return
	}
	err := h.accounts.AddAccount(c.Request.Context(), services.AddAccountRequest{
		AccountID:       c.Param("accountId"),
		Email:           req.Email,
		CaptchaResponse: req.RecapResponse,
		Origin:          req.Origin,
		SourceIP:        c.ClientIP(),
		RefCode:         req.RefCode,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handler) GetAccount(c *gin.Context) {
	v, err := h.accounts.GetAccount(c.Request.Context(), c.Param("accountId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) ListRefs(c *gin.Context) {
	refs, err := h.accounts.ListRefs(c.Request.Context(), c.Param("accountId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refs": refs})
}

func (h *Handler) ConfirmEmail(c *gin.Context) {
	var req sessionRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.accounts.ConfirmEmail(c.Request.Context(), req.SessionReceipt); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetWallet(c *gin.Context) {
	var req sessionRequest
	if !h.bind(c, &req) {
		return
	}
	code, err := h.accounts.SetWallet(c.Request.Context(), req.SessionReceipt, req.Wallet)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refCode": code})
}

func (h *Handler) ResetWallet(c *gin.Context) {
	var req sessionRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.accounts.ResetWallet(c.Request.Context(), req.SessionReceipt, req.Wallet); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ResetRequest(c *gin.Context) {
	var req resetRequest
	if !h.bind(c, &req) {
		return
	}
	err := h.accounts.ResetRequest(c.Request.Context(), req.Email, req.RecapResponse, req.Origin, c.ClientIP())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) GetRef(c *gin.Context) {
	info, err := h.accounts.GetRef(c.Request.Context(), c.Param("refCode"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) QueryAccount(c *gin.Context) {
	var req queryRequest
	if !h.bind(c, &req) {
		return
	}
	wallet, err := h.accounts.QueryAccount(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

func (h *Handler) Forward(c *gin.Context) {
	var req forwardRequest
	if !h.bind(c, &req) {
		return
	}
	msg, err := h.forwarder.Forward(c.Request.Context(), req.ForwardReceipt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, msg)
}

func (h *Handler) QueryUnlockReceipt(c *gin.Context) {
	var req unlockRequest
	if !h.bind(c, &req) {
		return
	}
	r, err := h.forwarder.QueryUnlockReceipt(c.Request.Context(), req.UnlockRequest)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipt": r})
}
