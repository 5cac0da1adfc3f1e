package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AminoVic23/PHC-4/internal/config"
	"github.com/AminoVic23/PHC-4/internal/domain/audit"
	"github.com/AminoVic23/PHC-4/internal/domain/facility"
	"github.com/AminoVic23/PHC-4/internal/domain/grant"
	"github.com/AminoVic23/PHC-4/internal/domain/rbac"
	"github.com/AminoVic23/PHC-4/internal/domain/session"
	"github.com/AminoVic23/PHC-4/internal/domain/staff"
	"github.com/AminoVic23/PHC-4/internal/platform/auth"
	"github.com/AminoVic23/PHC-4/internal/platform/db"
	"github.com/AminoVic23/PHC-4/internal/platform/middleware"
	"github.com/AminoVic23/PHC-4/internal/platform/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "phc-server",
		Short: "PHC access-control API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(rolesCmd())
	rootCmd.AddCommand(staffCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// withPool loads config and opens the database for one CLI command.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, poolConfig(cfg, "phc-cli"))
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func poolConfig(cfg *config.Config, app string) db.PoolConfig {
	return db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
		AppName:  app,
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				count, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, db.Migrations()).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "WARNING: migrate down is not supported by the built-in runner.")
			fmt.Fprintln(cmd.OutOrStdout(), "The audit log is append-only; restore from backup to roll back a schema change.")
			return nil
		},
	})

	return cmd
}

func rolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage roles and permissions",
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create missing roles and grant their permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				if file == "" {
					file = cfg.RoleSeedFile
				}
				seed, err := loadSeed(file)
				if err != nil {
					return err
				}
				recorder := audit.NewRecorder(audit.NewRepo(pool), db.NewTransactor(pool), newLogger(cfg), nil)
				svc := rbac.NewService(rbac.NewRepo(pool), recorder)
				res, err := svc.ApplySeed(ctx, audit.SystemActor, seed)
				if err != nil {
					return fmt.Errorf("seed failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Roles created: %d, flags updated: %d, permissions granted: %d\n",
					res.RolesCreated, res.FlagsUpdated, res.Grants)
				return nil
			})
		},
	}
	seedCmd.Flags().String("file", "", "YAML seed file (defaults to ROLE_SEED_FILE, then the built-in role table)")
	cmd.AddCommand(seedCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "permissions",
		Short: "List the permission catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range rbac.ListPermissions() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", p.Code, p.Name)
			}
			return nil
		},
	})
	return cmd
}

func loadSeed(file string) (*rbac.Seed, error) {
	if file == "" {
		return rbac.DefaultSeed(), nil
	}
	return rbac.LoadSeedFile(file)
}

func staffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts",
	}

	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Enroll the first administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			roleName, _ := cmd.Flags().GetString("role")
			password := os.Getenv("PHC_BOOTSTRAP_PASSWORD")
			if name == "" || email == "" || password == "" {
				return fmt.Errorf("--name, --email and PHC_BOOTSTRAP_PASSWORD are required")
			}
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				recorder := audit.NewRecorder(audit.NewRepo(pool), db.NewTransactor(pool), newLogger(cfg), nil)
				roles := rbac.NewService(rbac.NewRepo(pool), recorder)
				role, err := roles.GetRoleByName(ctx, roleName)
				if err != nil {
					return fmt.Errorf("role %q: %w (run `phc-server roles seed` first)", roleName, err)
				}
				svc := staff.NewService(staff.NewRepo(pool), roles, recorder)
				a, err := svc.Enroll(ctx, audit.SystemActor, staff.EnrollInput{
					Name:     name,
					Email:    email,
					Password: password,
					RoleID:   role.ID,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enrolled %s (%s) as %s\n", a.Email, a.ID, role.Name)
				return nil
			})
		},
	}
	bootstrapCmd.Flags().String("name", "", "Full name")
	bootstrapCmd.Flags().String("email", "", "Login email")
	bootstrapCmd.Flags().String("role", "superadmin", "Role name")
	cmd.AddCommand(bootstrapCmd)
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// jwtConfig builds token verification for the resolved auth mode.
func jwtConfig(cfg *config.Config) auth.JWTConfig {
	jc := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		Skipper:  auth.AuthSkipper,
	}
	if cfg.ResolvedAuthMode() == "external" {
		jc.JWKSURL = cfg.AuthJWKSURL
	} else {
		jc.SigningKey = []byte(cfg.AuthSigningKey)
	}
	return jc
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.ResolvedAuthMode() == "development" {
		return auth.DevAuthMiddleware(cfg.DevActor(), jwtConfig(cfg))
	}
	return auth.JWTMiddleware(jwtConfig(cfg))
}

// newSessionStore picks Redis when REDIS_URL is set and the in-process store
// otherwise. The returned check is nil for the in-process store.
func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, *db.Check, error) {
	if cfg.RedisURL == "" {
		return session.NewMemoryStore(cfg.SessionTTL), nil, nil
	}
	client, err := session.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	store := session.NewRedisStore(client, cfg.SessionTTL)
	return store, &db.Check{Name: "session_store", Ping: store.Ping}, nil
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.ResolvedAuthMode() == "development" {
		logger.Warn().
			Str("dev_actor_id", cfg.DevActorID).
			Msg("development auth mode: requests without a token act as DEV_ACTOR_ID; do not use in production")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, poolConfig(cfg, "phc-server"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Session store
	store, storeCheck, err := newSessionStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to session store")
	}
	var healthChecks []db.Check
	if storeCheck != nil {
		healthChecks = append(healthChecks, *storeCheck)
		logger.Info().Msg("using redis session store")
	} else {
		logger.Warn().Msg("REDIS_URL not set; facility selections are kept in memory")
	}

	metrics := telemetry.NewMetrics()

	// Services
	recorder := audit.NewRecorder(audit.NewRepo(pool), db.NewTransactor(pool), logger, metrics)
	roleRepo := rbac.NewRepo(pool)
	roleSvc := rbac.NewService(roleRepo, recorder)
	guard := rbac.NewGuard(roleRepo, metrics)
	staffSvc := staff.NewService(staff.NewRepo(pool), roleSvc, recorder)
	facilitySvc := facility.NewService(facility.NewRepo(pool), recorder)
	grantSvc := grant.NewService(grant.NewRepo(pool), recorder)
	selector := session.NewSelector(store, grantSvc, facilitySvc, logger, metrics)
	issuer := auth.NewTokenIssuer([]byte(cfg.AuthSigningKey), cfg.AuthIssuer, cfg.AuthAudience, cfg.TokenTTL)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.SecurityLog(logger, metrics))

	// Auth middleware
	e.Use(authMiddleware(cfg))
	e.Use(middleware.CaptureRequestMeta())
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(staff.ResolveActor(staffSvc))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, healthChecks...))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// API groups
	apiV1 := e.Group("/api/v1")
	scoped := apiV1.Group("", session.RequireFacility(selector))

	rbac.NewHandler(roleSvc, guard).RegisterRoutes(apiV1)
	staff.NewHandler(staffSvc, guard).RegisterRoutes(apiV1)
	facility.NewHandler(facilitySvc, guard).RegisterRoutes(apiV1)
	grant.NewHandler(grantSvc, guard).RegisterRoutes(apiV1, scoped)
	session.NewHandler(selector, staffSvc, issuer, recorder).RegisterRoutes(apiV1)

	auditRead := apiV1.Group("", guard.RequirePermission(rbac.AuditRead))
	auditExport := apiV1.Group("",
		guard.RequirePermission(rbac.AuditExport),
		session.RequireFacility(selector),
		grant.RequireCapability(grantSvc, grant.CanExportData),
	)
	audit.NewHandler(audit.NewService(audit.NewRepo(pool)), logger).RegisterRoutes(auditRead, auditExport)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", cfg.ResolvedAuthMode()).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
