package database

import (
	"fmt"
	"time"

	"obra-manager/internal/access"
	"obra-manager/internal/config"
	"obra-manager/internal/logger"
	"obra-manager/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported db driver %q", driver)
}

// Open connects with retries; the database container often starts after us.
func Open(cfg *config.Config) (*gorm.DB, error) {
	d, err := dialector(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	gcfg := &gorm.Config{Logger: logger.Gorm(logger.L, cfg.IsProduction())}

	var db *gorm.DB
	const maxAttempts = 10
	for i := 1; i <= maxAttempts; i++ {
		logger.L.Info("connecting to DB", zap.String("driver", cfg.DBDriver), zap.Int("attempt", i), zap.Int("max", maxAttempts))

		db, err = gorm.Open(d, gcfg)
		if err == nil {
			logger.L.Info("connected to DB")
			return db, nil
		}

		logger.L.Warn("failed to connect to DB", zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect to db after %d attempts: %w", maxAttempts, err)
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Partida{},
		&models.Task{},
		&models.Material{},
		&models.MaterialInventory{},
		&models.Batch{},
		&models.Movement{},
		&models.InventoryAlert{},
		&models.Subcontractor{},
		&models.TeamMember{},
		&models.WorkAssignment{},
		&models.ChecklistTemplate{},
		&models.InspeccionCalidad{},
		&models.ChecklistItem{},
		&models.Photo{},
		&models.Report{},
		&models.AuditLog{},
	)
}

// Init opens the database, migrates it and seeds the default accounts into DB.
func Init(cfg *config.Config, roles access.Roles) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	DB = db

	createDefaultAdmin(cfg.AdminUsername, cfg.AdminPassword, roles)
	return nil
}

// the admin account only ever comes from configuration
func createDefaultAdmin(username, password string, roles access.Roles) {
	var count int64
	if err := DB.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		logger.L.Error("failed to check admin user", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	if _, err := CreateUser(username, password, models.RoleAdmin, roles); err != nil {
		logger.L.Error("failed to create default admin", zap.Error(err))
		return
	}
	logger.L.Info("created default admin user", zap.String("username", username))
}

// SeedDemoUsers creates one account per non-admin role for local demos.
func SeedDemoUsers(roles access.Roles) {
	type seedUser struct {
		Username string
		Password string
		Role     models.UserRole
	}

	users := []seedUser{
		{Username: "gerente@obra.local", Password: "Gerente123!", Role: models.RoleGerente},
		{Username: "residente@obra.local", Password: "Residente123!", Role: models.RoleResidente},
		{Username: "supervisor@obra.local", Password: "Supervisor123!", Role: models.RoleSupervisor},
		{Username: "almacen@obra.local", Password: "Almacen123!", Role: models.RoleAlmacen},
		{Username: "viewer@obra.local", Password: "Viewer123!", Role: models.RoleViewer},
	}

	for _, u := range users {
		var count int64
		if err := DB.Unscoped().Model(&models.User{}).
			Where("username = ?", u.Username).
			Count(&count).Error; err != nil {
			logger.L.Error("failed to check seed user", zap.String("username", u.Username), zap.Error(err))
			continue
		}
		if count > 0 {
			continue
		}

		if _, err := CreateUser(u.Username, u.Password, u.Role, roles); err != nil {
			logger.L.Error("failed to create seed user", zap.String("username", u.Username), zap.Error(err))
			continue
		}
		logger.L.Info("created seed user", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	}
}

// CreateUser hashes password and stores a user with the role's default permissions.
func CreateUser(username, password string, role models.UserRole, roles access.Roles) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:           username,
		PasswordHash:       string(hash),
		Role:               role,
		Permisos:           roles.For(string(role)),
		ProyectosAsignados: []uint{},
	}
	if user.Permisos == nil {
		user.Permisos = []string{}
	}
	if err := DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SeedChecklistTemplates loads the base checklist catalog. Existing codes are
// left untouched.
func SeedChecklistTemplates() error {
	templates := []models.ChecklistTemplate{
		{Code: "EST-01", Description: "Recubrimiento de acero según planos", Category: "STRUCTURAL", Critical: true},
		{Code: "EST-02", Description: "Cimbra alineada y apuntalada", Category: "STRUCTURAL", Critical: true},
		{Code: "EST-03", Description: "Muestras de concreto tomadas", Category: "STRUCTURAL"},
		{Code: "ELE-01", Description: "Canalizaciones fijas y selladas", Category: "ELECTRICAL"},
		{Code: "ELE-02", Description: "Tierra física conectada", Category: "ELECTRICAL", Critical: true},
		{Code: "PLO-01", Description: "Prueba de hermeticidad aprobada", Category: "PLUMBING", Critical: true},
		{Code: "ACA-01", Description: "Plomo y nivel de muros", Category: "FINISHING"},
		{Code: "SEG-01", Description: "Señalización y barandales instalados", Category: "SAFETY", Critical: true},
	}
	for _, t := range templates {
		if err := DB.Where(models.ChecklistTemplate{Code: t.Code}).FirstOrCreate(&t).Error; err != nil {
			return fmt.Errorf("seed template %s: %w", t.Code, err)
		}
	}
	return nil
}
