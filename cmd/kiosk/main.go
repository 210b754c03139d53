package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/config"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/camera"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/face"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/geo"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/profile"
	appHTTP "github.com/cmlabs-hris/hris-attendance-kiosk/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/breaker"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/faceapi"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/geocode"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/hrms"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/location"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/oauth"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/opencv"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/repository/postgresql"
	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/repository/sqlite"
	attendanceService "github.com/cmlabs-hris/hris-attendance-kiosk/internal/service/attendance"
	cameraService "github.com/cmlabs-hris/hris-attendance-kiosk/internal/service/camera"
	faceService "github.com/cmlabs-hris/hris-attendance-kiosk/internal/service/face"
	geoService "github.com/cmlabs-hris/hris-attendance-kiosk/internal/service/geo"
	profileService "github.com/cmlabs-hris/hris-attendance-kiosk/internal/service/profile"
)

// engine pairs a local detector with the remote recognizer.
type engine struct {
	face.Detector
	face.Recognizer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})).With(
		slog.String("app", "hris-attendance-kiosk"),
		slog.String("kiosk_id", cfg.App.KioskID),
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Kiosk stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	credentials, closeStore, err := openCredentialStore(ctx, cfg.Credentials)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	hub := sse.NewHub()

	tokenParser := jwt.NewParser(cfg.JWT.Secret)
	sessions := profileService.NewSessionManager(cfg.App.KioskID, credentials, tokenParser)

	authed := oauth.NewClient(oauth.NewTokenSource(sessions.Token), nil, cfg.Backend.Timeout)
	public := &http.Client{Timeout: cfg.Backend.Timeout}
	backend, err := hrms.NewClient(cfg.Backend.BaseURL, authed, public)
	if err != nil {
		return err
	}

	urls, err := profileService.NewURLNormalizer(cfg.Backend.BaseURL, cfg.App.FrontendOrigins)
	if err != nil {
		return err
	}
	profiles := profileService.NewProfileService(sessions, hrms.ProfileClient{Client: backend}, backend, urls, profileService.Config{})

	recognizer := faceapi.NewClient(cfg.Face.APIURL, cfg.Face.Timeout)
	var faceEngine face.Engine = recognizer
	if cfg.Face.Detector == "opencv" {
		detector, err := opencv.NewDetector(cfg.Face.CascadePath, cfg.Face.MinFaceSize)
		if err != nil {
			return fmt.Errorf("failed to load face detector: %w", err)
		}
		defer detector.Close()
		faceEngine = engine{Detector: detector, Recognizer: recognizer}
	}
	faces := faceService.NewFaceService(faceEngine, m)
	poller := faceService.NewPoller(faces, cfg.Face.PollInterval, cron.NewTicker, m)

	cam := cameraService.NewCameraService(opencv.Camera{Device: cfg.Camera.Device}, cameraService.Config{
		Constraints: camera.Constraints{
			FacingMode: camera.FacingMode(cfg.Camera.Facing),
			Width:      cfg.Camera.Width,
			Height:     cfg.Camera.Height,
		},
		JPEGQuality: cfg.Camera.JPEGQuality,
	}, m)

	geocoder, closeCache := newGeocoder(ctx, cfg)
	defer closeCache()
	locations := geoService.NewGeoService(positionSource(cfg.Geo), geocoder, geoService.Config{
		Timeout: cfg.Geo.Timeout,
		Offices: cfg.Geo.Offices,
	})

	svc := attendanceService.NewAttendanceService(
		hrms.AttendanceClient{Client: backend},
		profiles,
		faces,
		poller,
		cam,
		locations,
		hub,
		m,
		attendanceService.Config{Location: time.Local},
	)
	defer svc.Unmount()

	if _, err := svc.Mount(ctx); err != nil {
		// the kiosk stays up; a session hand-off or the retry job remounts
		slog.Warn("Initial mount failed", "error", err)
	}

	scheduler := cron.NewScheduler()
	cron.NewAttendanceJobs(svc, cfg.ReconcileInterval).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		App:            "hris-attendance-kiosk",
		Version:        cfg.App.Version,
		Env:            cfg.App.Env,
		AllowedOrigins: cfg.App.AllowedOrigins,
	}, sessions, appHTTP.Handlers{
		Attendance: appHTTP.NewAttendanceHandler(svc, time.Local),
		Session:    appHTTP.NewSessionHandler(sessions, profiles, svc),
		Events:     appHTTP.NewEventsHandler(hub, attendanceService.Topic, svc, 0),
		Preview:    appHTTP.NewPreviewHandler(cam, hub, attendanceService.Topic, 0, cfg.App.AllowedOrigins),
		Metrics:    m.Handler(),
	})

	// no write timeout: events and preview are long-lived streams
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Kiosk API listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down kiosk")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openCredentialStore(ctx context.Context, cfg config.CredentialsConfig) (profile.CredentialStore, func(), error) {
	switch cfg.Store {
	case "postgres":
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgresql.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgresql.NewCredentialRepository(db), db.Close, nil
	default:
		db, err := database.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlite.NewCredentialRepository(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	}
}

func newGeocoder(ctx context.Context, cfg *config.Config) (*geocode.Client, func()) {
	opts := []geocode.Option{
		geocode.WithLanguage(cfg.Geo.Language),
		geocode.WithBreaker(breaker.New("reverse-geocode", 3, time.Minute)),
	}
	closer := func() {}

	if cfg.Redis.Addr != "" {
		store, err := cache.NewRedis(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			slog.Warn("Geocode cache disabled", "error", err)
		} else {
			opts = append(opts, geocode.WithCache(store, cfg.Geo.CacheTTL))
			closer = func() { store.Close() }
		}
	}

	return geocode.NewClient(cfg.Geo.ReverseGeocodeURL, cfg.Geo.Timeout, opts...), closer
}

func positionSource(cfg config.GeoConfig) geo.PositionSource {
	switch cfg.Source {
	case "http":
		return location.HTTP{URL: cfg.SourceURL, Client: &http.Client{Timeout: cfg.Timeout}}
	case "none":
		return location.Static{}
	default:
		return location.Static{
			Latitude:  cfg.Latitude,
			Longitude: cfg.Longitude,
			Accuracy:  cfg.Accuracy,
			Enabled:   true,
		}
	}
}
