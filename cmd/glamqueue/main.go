package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/glamqueue/glamqueue/internal/account"
	"github.com/glamqueue/glamqueue/internal/booking"
	"github.com/glamqueue/glamqueue/internal/database"
	"github.com/glamqueue/glamqueue/internal/models"
	"github.com/glamqueue/glamqueue/internal/signup"
	"github.com/glamqueue/glamqueue/internal/store"
	rstore "github.com/glamqueue/glamqueue/internal/store/redis"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/knadh/stuffbin"
	"github.com/zerodha/logf"
	"gorm.io/gorm"

	authpkg "github.com/glamqueue/glamqueue/internal/auth"
)

// App is the global app context that groups the necessary controls
// (store, db, services, config etc.) to be injected into the HTTP
// handlers.
type App struct {
	store     store.Store
	db        *gorm.DB
	signup    *signup.Service
	accounts  *account.Service
	bookings  *booking.Service
	tokens    *authpkg.Tokens
	validate  *validator.Validate
	lo        logf.Logger
	fs        stuffbin.FileSystem
	constants constants
}

var (
	ko = koanf.New(".")

	// Version of the build injected at build time.
	buildString = "unknown"
)

func main() {
	initConfig()

	lo := initLogger(ko.String("app.env") != "production")

	app := &App{
		lo: lo,
		fs: initFS(os.Args[0]),
		constants: constants{
			Env:            ko.String("app.env"),
			RootURL:        strings.TrimRight(ko.String("app.root_url"), "/"),
			Namespace:      ko.String("app.namespace"),
			OtpTTL:         ko.Duration("app.otp_ttl") * time.Second,
			OtpMaxAttempts: ko.Int("app.otp_max_attempts"),
		},
	}
	if app.constants.Namespace == "" {
		app.constants.Namespace = "glamqueue"
	}

	// Load the OTP store.
	var rc rstore.Conf
	ko.UnmarshalWithConf("store.redis", &rc, koanf.UnmarshalConf{Tag: "json"})
	app.store = rstore.New(rc)

	// Load the database.
	var dc database.Conf
	ko.UnmarshalWithConf("db", &dc, koanf.UnmarshalConf{Tag: "json"})
	db, err := database.Connect(dc)
	if err != nil {
		lo.Fatal("error connecting to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		lo.Fatal("error migrating database schema", "error", err)
	}
	app.db = db

	tokens, err := authpkg.New(ko.String("app.jwt_secret"),
		ko.Duration("app.jwt_expiry")*time.Second)
	if err != nil {
		lo.Fatal("error initializing session tokens", "error", err)
	}
	app.tokens = tokens

	// E-mail provider and the template-compiling dispatcher.
	prov, err := initProvider(ko.String("app.provider"), lo)
	if err != nil {
		lo.Fatal("error initializing provider", "error", err)
	}
	disp, err := initDispatcher(prov, app.fs, app.constants.OtpTTL, lo)
	if err != nil {
		lo.Fatal("error initializing mail templates", "error", err)
	}

	app.accounts = account.NewService(db, tokens, lo)
	app.signup = signup.NewService(app.store, disp, app.accounts, prov, signup.Opt{
		Namespace:   app.constants.Namespace,
		TTL:         app.constants.OtpTTL,
		MaxAttempts: app.constants.OtpMaxAttempts,
	}, lo)
	app.bookings = booking.NewService(db, lo)
	app.validate = validator.New()

	// Register handles.
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("glamqueue"))
	})
	r.Get("/api/health", wrap(app, handleHealthCheck))

	r.Post("/api/signup/otp", wrap(app, handleSendOTP))
	r.Post("/api/signup/verify", wrap(app, handleVerifyOTP))
	r.Post("/api/login", wrap(app, handleLogin))
	r.Get("/api/profile", wrap(app, authRequired(handleGetProfile)))

	r.Get("/api/salons", wrap(app, handleListSalons))
	r.Get("/api/salons/{id}/services", wrap(app, handleListServices))
	r.Get("/api/services", wrap(app, handleListServices))

	r.Post("/api/bookings", wrap(app, authRequired(handleCreateBooking)))
	r.Get("/api/bookings", wrap(app, authRequired(handleListMyBookings)))
	r.Delete("/api/bookings/{id}", wrap(app, authRequired(handleCancelBooking)))

	staff := []models.Role{models.RoleStaff, models.RoleManager, models.RoleAdmin}
	r.Get("/api/admin/bookings", wrap(app, authRequired(requireRole(handleAdminListBookings, staff...))))
	r.Put("/api/admin/bookings/{id}/status", wrap(app, authRequired(requireRole(handleAdminUpdateBookingStatus, staff...))))

	// HTTP Server.
	timeout := ko.Duration("app.server_timeout")
	if timeout.Seconds() < 1 {
		timeout = time.Second * 5
	}

	srv := &http.Server{
		Addr:         ko.String("app.address"),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		Handler:      r,
	}

	lo.Info("starting server", "address", srv.Addr, "env", app.constants.Env)
	if err := srv.ListenAndServe(); err != nil {
		lo.Fatal("couldn't start server", "error", err)
	}
}
