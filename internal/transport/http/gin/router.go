package httpgin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/tiketbaris/gate-go/internal/domain"
	"github.com/tiketbaris/gate-go/internal/gateway"
	redisrepo "github.com/tiketbaris/gate-go/internal/repository/redis"
	"github.com/tiketbaris/gate-go/internal/service"
	"github.com/tiketbaris/gate-go/internal/service/issuer"
	"github.com/tiketbaris/gate-go/internal/service/query"
	"github.com/tiketbaris/gate-go/internal/service/redemption"
	"github.com/tiketbaris/gate-go/internal/ticketcode"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	gatewayServerKey string,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Buyer-facing API
	r.POST("/checkout", handleCheckout(svcs))
	r.GET("/transactions/:order_id", handleGetTransaction(svcs))
	r.GET("/tickets/:code", handleGetTicket(svcs))
	r.GET("/tickets/:code/qr", handleTicketQR(svcs))

	// Gateway webhook
	r.POST("/payments/notification", handlePaymentNotification(svcs, idem, gatewayServerKey))

	// Gate-facing API
	r.POST("/scan", handleScan(svcs))
	r.GET("/events/:id/gate-stats", handleGateStats(svcs))

	// Admin-API
	// TODO: add admin middleware
	admin := r.Group("/admin")
	{
		admin.POST("/tickets/:code/cancel", handleCancelTicket(svcs))
		admin.POST("/events/:id/close", handleCloseEvent(svcs))
		admin.GET("/tickets/:code/scans", handleScanHistory(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Create a pending transaction for an order
// @Param    req body  CheckoutRequest true "payload"
// @Success  201 {object} CheckoutResponse
// @Failure  409 {object} ErrorResponse "order id already used"
// @Router   /checkout [post]
func handleCheckout(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		t, err := svcs.Issuer.Checkout(
			c.Request.Context(),
			req.OrderID,
			req.UserID,
			req.EventID,
			req.Quantity,
			req.AmountCents,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CheckoutResponse{
			TransactionID: t.ID.String(),
			OrderID:       t.OrderID,
			PaymentStatus: string(t.PaymentStatus),
		})
	}
}

// @Summary  Payment gateway settlement webhook (at-least-once delivery)
// @Param    req body  gateway.Notification true "payload"
// @Success  200 {object} NotificationResponse
// @Failure  401 {object} ErrorResponse "bad signature"
// @Failure  404 {object} ErrorResponse
// @Router   /payments/notification [post]
func handlePaymentNotification(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	serverKey string,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var n gateway.Notification
		if err := c.ShouldBindJSON(&n); err != nil {
			badRequest(c, err.Error())
			return
		}

		if serverKey != "" {
			if err := n.VerifySignature(serverKey); err != nil {
				c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
				return
			}
		}

		outcome, err := n.Outcome()
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		switch outcome {
		case gateway.SettlementPending:
			c.JSON(http.StatusOK, NotificationResponse{
				OrderID:       n.OrderID,
				PaymentStatus: string(domain.PaymentPending),
			})
		case gateway.SettlementConfirmed:
			handleSettlementConfirmed(c, svcs, idem, n.OrderID)
		case gateway.SettlementCancelled:
			handleSettlementClosed(c, svcs.Issuer.OnPaymentCancelled, n.OrderID, domain.PaymentCancelled)
		case gateway.SettlementFailed:
			handleSettlementClosed(c, svcs.Issuer.OnPaymentFailed, n.OrderID, domain.PaymentFailed)
		}
	}
}

// handleSettlementConfirmed issues the order's tickets. The Redis result
// replay absorbs webhook retries cheaply; the transaction-row conditional
// update is what actually guarantees exactly-once minting.
func handleSettlementConfirmed(
	c *gin.Context,
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	orderID string,
) {
	var idemKey string
	if idem != nil {
		idemKey = redisrepo.KeyIdemNotification(orderID)

		if payload, ok, _ := idem.GetResult(c.Request.Context(), idemKey); ok {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
			return
		}

		locked, err := idem.AcquireLock(c.Request.Context(), idemKey, 60*time.Second)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !locked {
			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemKey); ok {
				c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
				return
			}
			c.Header("Retry-After", "1")
			c.JSON(http.StatusConflict, ErrorResponse{Error: "notification in progress"})
			return
		}
	}

	tickets, err := svcs.Issuer.OnPaymentConfirmed(c.Request.Context(), orderID)
	if err != nil {
		if idemKey != "" && idem != nil {
			_ = idem.Release(c.Request.Context(), idemKey)
		}
		respondErr(c, err)
		return
	}

	codes := make([]string, 0, len(tickets))
	for _, t := range tickets {
		codes = append(codes, t.Code)
	}

	resp := NotificationResponse{
		OrderID:       orderID,
		PaymentStatus: string(domain.PaymentCompleted),
		TicketCodes:   codes,
	}

	if idemKey != "" && idem != nil {
		b, _ := json.Marshal(resp)
		_ = idem.SaveResult(c.Request.Context(), idemKey, string(b))
	}

	c.JSON(http.StatusOK, resp)
}

func handleSettlementClosed(
	c *gin.Context,
	finish func(ctx context.Context, orderID string) error,
	orderID string,
	status domain.PaymentStatus,
) {
	if err := finish(c.Request.Context(), orderID); err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, NotificationResponse{
		OrderID:       orderID,
		PaymentStatus: string(status),
	})
}

// @Summary  Redeem a ticket code at a gate
// @Param    req body  ScanRequest true "payload"
// @Success  200 {object} ScanResponse "admitted"
// @Failure  404 {object} ScanResponse "unknown code"
// @Failure  409 {object} ScanResponse "already scanned or wrong event"
// @Failure  410 {object} ScanResponse "ticket cancelled"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /scan [post]
func handleScan(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		rlKey := "scanner:" + strconv.FormatInt(req.ScannerID, 10)

		out, err := svcs.Redemption.Redeem(
			c.Request.Context(),
			req.Code,
			req.ScannerID,
			req.EventID,
			rlKey,
		)
		if err != nil {
			var rl redemption.RateLimitedError
			if errors.As(err, &rl) {
				c.Header("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())+1))
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
				return
			}
			respondErr(c, err)
			return
		}

		c.JSON(scanStatus(out.Kind), ScanResponse{
			Outcome:   string(out.Kind),
			ScannedAt: out.ScannedAt,
			ScannedBy: out.ScannedBy,
		})
	}
}

// @Summary  Get transaction with tickets
// @Param    order_id  path  string  true  "Order ID"
// @Success  200 {object} TransactionResponse
// @Router   /transactions/{order_id} [get]
func handleGetTransaction(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tw, err := svcs.Query.GetTransaction(c.Request.Context(), c.Param("order_id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toTransactionResponse(tw))
	}
}

// @Summary  Get ticket
// @Param    code  path  string  true  "Ticket code"
// @Success  200 {object} TicketResponse
// @Router   /tickets/{code} [get]
func handleGetTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := svcs.Query.GetTicket(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toTicketResponse(*t))
	}
}

// @Summary  Ticket QR symbol
// @Param    code  path  string  true  "Ticket code"
// @Produce  png
// @Success  200 {file} binary
// @Router   /tickets/{code}/qr [get]
func handleTicketQR(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		png, err := svcs.Query.TicketQR(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}
		// The code is immutable, so the symbol never changes.
		c.Header("Cache-Control", "private, max-age=86400")
		c.Data(http.StatusOK, "image/png", png)
	}
}

// @Summary  Per-event gate counters
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} GateStatsResponse
// @Router   /events/{id}/gate-stats [get]
func handleGateStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		stats, err := svcs.Query.GateStats(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 5s, dashboards poll this
		writeJSONWithCache(c, http.StatusOK, GateStatsResponse{
			Active:    stats.Active,
			Scanned:   stats.Scanned,
			Used:      stats.Used,
			Cancelled: stats.Cancelled,
			Total:     stats.Total,
		}, "public, max-age=5", true)
	}
}

// @Summary  Administratively cancel an active ticket
// @Param    code  path  string  true  "Ticket code"
// @Success  204
// @Failure  409 {object} ErrorResponse "ticket already left active"
// @Router   /admin/tickets/{code}/cancel [post]
func handleCancelTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Redemption.Cancel(c.Request.Context(), c.Param("code")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Close a finished event (scanned tickets become used)
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} CloseEventResponse
// @Router   /admin/events/{id}/close [post]
func handleCloseEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		used, err := svcs.Redemption.CloseEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, CloseEventResponse{EventID: eventID, Used: used})
	}
}

// @Summary  Scan attempt history for a code
// @Param    code  path  string  true  "Ticket code"
// @Success  200 {array} ScanRecordResponse
// @Router   /admin/tickets/{code}/scans [get]
func handleScanHistory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := svcs.Query.ScanHistory(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]ScanRecordResponse, 0, len(recs))
		for _, rec := range recs {
			out = append(out, ScanRecordResponse{
				Code:      rec.Code,
				EventID:   rec.EventID,
				ScannerID: rec.ScannerID,
				Outcome:   string(rec.Outcome),
				At:        rec.At,
			})
		}

		c.JSON(http.StatusOK, out)
	}
}

// --- Helpers ---

func scanStatus(kind domain.OutcomeKind) int {
	switch kind {
	case domain.OutcomeAdmitted:
		return http.StatusOK
	case domain.OutcomeNotFound:
		return http.StatusNotFound
	case domain.OutcomeCancelled:
		return http.StatusGone
	default: // already_scanned, wrong_event
		return http.StatusConflict
	}
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// issuer service
	case errors.Is(err, issuer.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "order not found"})
		return
	case errors.Is(err, issuer.ErrOrderExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "order already exists"})
		return
	case errors.Is(err, issuer.ErrTransactionClosed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "transaction is cancelled or failed"})
		return
	case errors.Is(err, issuer.ErrAlreadySettled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "transaction already completed"})
		return
	case errors.Is(err, ticketcode.ErrExhausted):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "ticket code generation exhausted"})
		return
	// redemption service
	case errors.Is(err, redemption.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
		return
	case errors.Is(err, redemption.ErrNotCancellable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "ticket already left active"})
		return
	// query service
	case errors.Is(err, query.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "order not found"})
		return
	case errors.Is(err, query.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// writeJSONWithCache writes a JSON response with ETag/Cache-Control.
// If If-None-Match matches the current ETag it returns 304.
func writeJSONWithCache(
	c *gin.Context,
	status int,
	v any,
	cacheControl string,
	weak bool,
) {
	b, err := json.Marshal(v)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	sum := sha256.Sum256(b)
	tag := `"` + hex.EncodeToString(sum[:]) + `"`
	if weak {
		tag = "W/" + tag
	}
	inm := c.GetHeader("If-None-Match")
	c.Header("ETag", tag)
	if cacheControl != "" {
		c.Header("Cache-Control", cacheControl)
	}
	if inm == tag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(status, "application/json; charset=utf-8", b)
}
