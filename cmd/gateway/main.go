package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	authmw "github.com/mind-engage/wamtrack/internal/auth/middleware"
	"github.com/mind-engage/wamtrack/internal/config"
	"github.com/mind-engage/wamtrack/internal/db"
	"github.com/mind-engage/wamtrack/internal/grading"
	"github.com/mind-engage/wamtrack/internal/metrics"
	syncx "github.com/mind-engage/wamtrack/internal/sync"
	"github.com/mind-engage/wamtrack/internal/tracker"
)

func main() {
	if err := config.LoadDotEnv(getenvOr("ENV_FILE", ".env")); err != nil {
		log.Fatalf("env file: %v", err)
	}
	cfg := config.FromEnv()

	scheme, err := grading.LoadSchemeFile(cfg.GradeSchemeFile)
	if err != nil {
		log.Fatalf("grading scheme: %v", err)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, events, dbh, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if dbh != nil {
		defer dbh.Close()
	}

	var m *metrics.Metrics
	opts := []tracker.Option{tracker.WithEventLog(events), tracker.WithScheme(scheme)}
	if cfg.EnableMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
		opts = append(opts, tracker.WithReportHook(m.ObserveReport))
	}
	svc := tracker.NewService(store, opts...)

	// --- Auth ---
	authSvc := authmw.NewAuthService(cfg.AuthSecret, cfg.TokenTTL)
	if err := bootstrapAdmin(ctx, svc, cfg.AdminStudentID, cfg.AdminPassHash); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	h := newRouter(deps{
		svc:     svc,
		auth:    authSvc,
		events:  events,
		metrics: m,
		origins: cfg.CORSOrigins(),
		ready: func(ctx context.Context) error {
			if dbh == nil {
				return nil
			}
			return dbh.PingContext(ctx)
		},
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.Printf("listening on %s (mode=%s, db=%s, scheme=%d bands)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, len(scheme))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// openStore picks the tracker store and audit log for the configured driver.
// The returned *sql.DB is nil for the memory driver.
func openStore(ctx context.Context, cfg config.Config) (tracker.Store, syncx.Log, *sql.DB, error) {
	if db.Driver(cfg.DBDriver) == db.DriverMemory {
		return tracker.NewInMemoryStore(), syncx.NewMemoryLog(), nil, nil
	}
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	var opts []tracker.SQLOption
	if db.Driver(cfg.DBDriver) == db.DriverPostgres {
		opts = append(opts, tracker.WithRowLocks())
	}
	return tracker.NewSQLStore(dbh, opts...), syncx.NewEventRepo(dbh), dbh, nil
}

// bootstrapAdmin makes sure the configured admin account exists and holds
// the admin role. It does nothing unless both values are set.
func bootstrapAdmin(ctx context.Context, svc *tracker.Service, studentID, passHash string) error {
	if studentID == "" || passHash == "" {
		return nil
	}
	u, err := svc.GetUserByStudentID(ctx, studentID)
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		_, err = svc.RegisterUser(ctx, tracker.User{
			Name:         "Administrator",
			StudentID:    studentID,
			Role:         tracker.RoleAdmin,
			PasswordHash: passHash,
		})
		return err
	case err != nil:
		return err
	case u.Role != tracker.RoleAdmin:
		if _, err := svc.SetRole(ctx, u.ID, tracker.RoleAdmin); err != nil {
			return fmt.Errorf("promote %s: %w", studentID, err)
		}
	}
	return nil
}

func getenvOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
