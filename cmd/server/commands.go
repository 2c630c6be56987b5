package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"obra-manager/internal/database"
	"obra-manager/internal/handlers"
	"obra-manager/internal/logger"
	"obra-manager/internal/models"
	"obra-manager/internal/notify"
	"obra-manager/internal/server"
	"obra-manager/internal/share"
	"obra-manager/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedDemo  bool
	resetUser string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.L.Info("schema up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account and the checklist catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Init(cfg, roles); err != nil {
			return err
		}
		if err := database.SeedChecklistTemplates(); err != nil {
			return err
		}
		if seedDemo {
			database.SeedDemoUsers(roles)
		}
		return nil
	},
}

var permisosCmd = &cobra.Command{
	Use:   "permisos",
	Short: "Print the permission catalog and role defaults",
	Long: `Prints every role with its default permissions after applying ROLES_FILE.
With --reset, the given user's permission list is replaced by its role defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, role := range []models.UserRole{
			models.RoleAdmin, models.RoleGerente, models.RoleResidente,
			models.RoleSupervisor, models.RoleAlmacen, models.RoleViewer,
		} {
			fmt.Fprintf(out, "%s:\n", role)
			for _, p := range roles.For(string(role)) {
				fmt.Fprintf(out, "  %s\n", p)
			}
		}

		if resetUser == "" {
			return nil
		}

		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		database.DB = db

		var user models.User
		if err := db.Where("username = ?", strings.TrimSpace(resetUser)).First(&user).Error; err != nil {
			return fmt.Errorf("find user %q: %w", resetUser, err)
		}
		user.Permisos = roles.For(string(user.Role))
		if user.Permisos == nil {
			user.Permisos = []string{}
		}
		if err := db.Save(&user).Error; err != nil {
			return fmt.Errorf("save user: %w", err)
		}
		fmt.Fprintf(out, "permissions of %s reset to %s defaults (%d)\n", user.Username, user.Role, len(user.Permisos))
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := database.Init(cfg, roles); err != nil {
		return err
	}

	var sender notify.Sender = notify.LogOnly{}
	if cfg.SMTP.Enabled() {
		sender = notify.NewSMTP(cfg.SMTP)
	}

	photos, err := storage.NewLocal(cfg.UploadDir)
	if err != nil {
		return err
	}

	handlers.Setup(
		roles,
		notify.New(sender),
		photos,
		share.NewSigner(cfg.ShareSecret, time.Duration(cfg.ShareTTLHrs)*time.Hour),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           server.NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.L.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
