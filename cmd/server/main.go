package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sstaudit/internal/api"
	"sstaudit/internal/api/handlers"
	"sstaudit/internal/api/middleware"
	"sstaudit/internal/engine/auth"
	"sstaudit/internal/engine/orgs"
	"sstaudit/internal/engine/sessions"
	"sstaudit/internal/pkg/logger"
	"sstaudit/internal/platform/audit"
	"sstaudit/internal/platform/config"
	"sstaudit/internal/platform/database"
	"sstaudit/internal/platform/repositories"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Repositories
	orgRepo := repositories.NewOrganizationRepository(db)
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	memberRepo := repositories.NewMemberRepository(db)
	inviteRepo := repositories.NewInviteRepository(db)
	roleRepo := repositories.NewOrgRoleRepository(db)

	// Services
	sessionSvc := sessions.NewService(sessionRepo, userRepo, cfg.Session.TTL)
	authSvc := auth.NewService(userRepo, sessionSvc)
	orgSvc := orgs.NewService(orgRepo, userRepo, memberRepo, inviteRepo, roleRepo,
		sessionSvc, cfg.Invites.TTL, cfg.Members.PageSize)
	auditLog := audit.NewLogger(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(authSvc, sessionSvc, cfg.Cookie)
	orgHandler := handlers.NewOrgHandler(orgSvc, auditLog)
	memberHandler := handlers.NewMemberHandler(orgSvc, auditLog)
	inviteHandler := handlers.NewInviteHandler(orgSvc, auditLog)
	roleHandler := handlers.NewRoleHandler(orgSvc, auditLog)
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	sessionMiddleware := middleware.NewSessionMiddleware(sessionSvc, userRepo)

	router := api.NewRouter(&api.Dependencies{
		AuthHandler:   authHandler,
		OrgHandler:    orgHandler,
		MemberHandler: memberHandler,
		InviteHandler: inviteHandler,
		RoleHandler:   roleHandler,
		HealthHandler: healthHandler,
		Session:       sessionMiddleware,
	})

	// Expired-session reaper
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reaper := sessions.NewReaper(sessionRepo, cfg.Session.ReaperInterval)
	go reaper.Run(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
