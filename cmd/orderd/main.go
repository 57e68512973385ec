package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/config"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/httpapi"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/hub"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/payment"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/store/postgres"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/telemetry"
	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/token"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "" || cfg.SuperJWTSecret == "" {
		log.Fatal("JWT_SECRET and SUPER_JWT_SECRET are required")
	}

	shutdownTelemetry := telemetry.Setup("orderd")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	st := postgres.NewStore(pool)
	h := hub.New()
	secrets := httpapi.Secrets{JWT: cfg.JWTSecret, SuperJWT: cfg.SuperJWTSecret}
	gate := httpapi.NewAuthGate(secrets)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		Window: cfg.RateLimitWindow,
		Max:    cfg.RateLimitMax,
	})
	handler := httpapi.NewHandler(st, gate, httpapi.Options{
		Secrets:  secrets,
		AdminTTL: cfg.AdminTokenTTL,
		CustTTL:  cfg.CustTokenTTL,
		Payments: payment.New(cfg.PaymentBaseURL, cfg.PaymentSecretKey),
	})

	mux := http.NewServeMux()
	mux.Handle("/", gate.Middleware(handler.Routes()))
	mux.Handle("/realtime/", realtimeHandler(h, secrets))

	root := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "orderd")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("orderd listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	pollCtx, stopPoller := context.WithCancel(context.Background())
	go pollOutbox(pollCtx, st, h, cfg)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopPoller()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// realtimeHandler authenticates a sockjs session against the realm
// tokens and binds it to one store channel. Admins are pinned to their
// token's store; a super names the store with a query parameter.
func realtimeHandler(h *hub.Hub, secrets httpapi.Secrets) http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		req := session.Request()
		raw := tokenFromRequest(req)
		if raw == "" {
			_ = session.Close(4001, "missing token")
			return
		}

		storeID := ""
		if claims, ok := token.Verify(raw, secrets.SuperJWT); ok && claims.Realm == token.RealmSuper {
			storeID = strings.TrimSpace(req.URL.Query().Get("store_id"))
		} else if claims, ok := token.Verify(raw, secrets.JWT); ok && claims.Realm == token.RealmAdmin {
			storeID = claims.StoreID
		}
		if storeID == "" {
			_ = session.Close(4002, "invalid token")
			return
		}

		client := &hub.Client{ID: uuid.NewString(), StoreID: storeID, Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		// No server-side replay: a reconnecting client refreshes its list
		// over HTTP and only streams from here on.
		for {
			if _, err := session.Recv(); err != nil {
				return
			}
		}
	})
}

func tokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := r.Header.Get("Authorization")
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	if cookie, err := r.Cookie("admin_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if cookie, err := r.Cookie("super_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// pollOutbox drains persisted events into the hub in commit order. A
// tick that falls behind is skipped rather than stacked; the offset row
// survives restarts so nothing is replayed to the hub twice.
func pollOutbox(ctx context.Context, st *postgres.Store, h *hub.Hub, cfg config.Config) {
	offset, err := st.GetOffset(context.Background())
	if err != nil {
		log.Printf("load offset error: %v", err)
	}
	if offset.LastEventTime.IsZero() {
		offset.LastEventTime = time.Unix(0, 0).UTC()
	}

	interval := cfg.OutboxPoll
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var running int32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			continue
		}

		tickCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		events, err := st.ListOutboxEvents(tickCtx, offset, cfg.OutboxBatchSize)
		cancel()
		if err != nil {
			log.Printf("list outbox error: %v", err)
			atomic.StoreInt32(&running, 0)
			continue
		}

		for _, event := range events {
			offset.LastEventTime = event.CreatedAt
			offset.LastEventID = event.EventID
			h.Broadcast(hub.Event{
				EventID:   event.EventID,
				StoreID:   event.StoreID,
				Kind:      event.Kind,
				Payload:   event.Payload,
				EmittedAt: event.CreatedAt,
			})
		}

		if len(events) > 0 {
			tickCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := st.UpdateOffset(tickCtx, offset); err != nil {
				log.Printf("update offset error: %v", err)
			}
			if cfg.OutboxRetention > 0 {
				cleanupBefore := offset.LastEventTime.Add(-cfg.OutboxRetention)
				if err := st.CleanupOutbox(tickCtx, cleanupBefore); err != nil {
					log.Printf("cleanup outbox error: %v", err)
				}
			}
			cancel()
		}
		atomic.StoreInt32(&running, 0)
	}
}
