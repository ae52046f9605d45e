package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/careflow/careflow/internal/config"
	"github.com/careflow/careflow/internal/domain/appointment"
	"github.com/careflow/careflow/internal/domain/audit"
	"github.com/careflow/careflow/internal/domain/availability"
	"github.com/careflow/careflow/internal/domain/patient"
	"github.com/careflow/careflow/internal/domain/schedule"
	"github.com/careflow/careflow/internal/domain/staff"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/internal/platform/db"
	"github.com/careflow/careflow/internal/platform/middleware"
	"github.com/careflow/careflow/internal/platform/notification"
	"github.com/careflow/careflow/internal/platform/sequence"
	"github.com/careflow/careflow/pkg/timeofday"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic appointment scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

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

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Appointment number allocator: Redis when configured, the
	// per-date counter table otherwise.
	var numbers appointment.NumberAllocator
	if cfg.RedisURL != "" {
		client, err := sequence.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		numbers = sequence.NewRedisAllocator(client)
		logger.Info().Msg("using redis appointment sequence")
	} else {
		numbers = sequence.NewPGAllocator(pool)
		logger.Info().Msg("using postgres appointment sequence")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health checks are public; everything under /api/v1 is
	// authenticated.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: []byte(cfg.JWTSecret),
		}))
	}
	apiV1.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	// Domain services
	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	staffSvc := staff.NewService(staff.NewRepoPG(pool))
	scheduleSvc := schedule.NewService(schedule.NewRepoPG(pool), schedule.NewOverrideRepoPG(pool))

	apptRepo := appointment.NewRepoPG(pool)
	recorder := audit.NewRecorder(audit.NewRepoPG(pool), logger)

	// Notifications go through the template engine; the log sender
	// stands in for real email/SMS providers.
	logSender := &notification.LogSender{Logger: logger}
	notifyMgr := notification.NewNotificationManager(logSender, logSender, notification.NewTemplateEngine())
	notifier := appointment.NewManagerNotifier(notifyMgr, patientContact(patientSvc), logger)

	inTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.RunInTx(ctx, pool, fn)
	}
	apptSvc := appointment.NewService(apptRepo, patientSvc, staffSvc, numbers, recorder, notifier, inTx, logger)

	engine := availability.NewEngine(scheduleSvc, scheduleSvc, appointment.NewLedger(apptRepo), logger)

	// Routes
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	staff.NewHandler(staffSvc).RegisterRoutes(apiV1)
	schedule.NewHandler(scheduleSvc).RegisterRoutes(apiV1)
	availability.NewHandler(engine).RegisterRoutes(apiV1)
	appointment.NewHandler(apptSvc).RegisterRoutes(apiV1)
	notification.NewNotificationHandler(notifyMgr).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// patientContact resolves a patient's name and preferred notification
// address for the lifecycle notifier.
func patientContact(svc *patient.Service) appointment.ContactLookup {
	return func(ctx context.Context, patientID uuid.UUID) (string, string, error) {
		p, err := svc.Get(ctx, patientID)
		if err != nil {
			return "", "", err
		}
		switch {
		case p.Email != nil && *p.Email != "":
			return p.FullName(), *p.Email, nil
		case p.Phone != nil && *p.Phone != "":
			return p.FullName(), *p.Phone, nil
		default:
			return "", "", fmt.Errorf("patient %s has no contact on file", patientID)
		}
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load development fixtures",
		RunE: func(cmd *cobra.Command, args []string) error {
			patients, _ := cmd.Flags().GetInt("patients")
			doctors, _ := cmd.Flags().GetInt("doctors")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to seed a production database")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			return seed(ctx, pool, patients, doctors)
		},
	}
	cmd.Flags().Int("patients", 50, "Number of patients to create")
	cmd.Flags().Int("doctors", 5, "Number of doctors to create")
	return cmd
}

// seed fills the database with plausible development data: patients,
// a small clinical staff, and a weekday schedule for every doctor.
func seed(ctx context.Context, pool *pgxpool.Pool, patients, doctors int) error {
	faker := gofakeit.New(0)

	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	staffSvc := staff.NewService(staff.NewRepoPG(pool))
	scheduleSvc := schedule.NewService(schedule.NewRepoPG(pool), schedule.NewOverrideRepoPG(pool))

	for i := 0; i < patients; i++ {
		phone := faker.Phone()
		email := faker.Email()
		dob := faker.DateRange(
			time.Now().AddDate(-90, 0, 0),
			time.Now().AddDate(-1, 0, 0))
		gender := faker.Gender()
		address := faker.Address().Address
		p := &patient.Patient{
			FirstName:   faker.FirstName(),
			LastName:    faker.LastName(),
			Phone:       &phone,
			Email:       &email,
			DateOfBirth: &dob,
			Gender:      &gender,
			Address:     &address,
		}
		if err := patientSvc.Create(ctx, p); err != nil {
			return fmt.Errorf("seed patient: %w", err)
		}
	}

	specialties := []string{"General Medicine", "Pediatrics", "Cardiology", "Dermatology", "Orthopedics"}
	workStart, _ := timeofday.Parse("09:00")
	workEnd, _ := timeofday.Parse("17:00")

	for i := 0; i < doctors; i++ {
		specialty := specialties[i%len(specialties)]
		doc := &staff.Staff{
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			Role:      staff.RoleDoctor,
			Specialty: &specialty,
		}
		if err := staffSvc.Create(ctx, doc); err != nil {
			return fmt.Errorf("seed doctor: %w", err)
		}

		// Monday through Friday, standard hours.
		for day := 1; day <= 5; day++ {
			sc := &schedule.DoctorSchedule{
				DoctorID:            doc.ID,
				DayOfWeek:           day,
				StartTime:           workStart,
				EndTime:             workEnd,
				SlotDurationMinutes: 30,
				BufferMinutes:       5,
				IsAvailable:         true,
			}
			if err := scheduleSvc.Create(ctx, sc); err != nil {
				return fmt.Errorf("seed schedule: %w", err)
			}
		}
	}

	for _, role := range []string{staff.RoleNurse, staff.RoleReceptionist} {
		m := &staff.Staff{
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			Role:      role,
		}
		if err := staffSvc.Create(ctx, m); err != nil {
			return fmt.Errorf("seed staff: %w", err)
		}
	}

	fmt.Printf("Seeded %d patients and %d doctors with weekday schedules.\n", patients, doctors)
	return nil
}
