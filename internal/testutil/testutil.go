package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"fieldops-service/internal/logger"
	"fieldops-service/internal/model"
)

func Logger(tb testing.TB) zerolog.Logger {
	tb.Helper()
	return logger.New("test")
}

// DB opens a private in-memory database with the full schema migrated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&model.Job{},
		&model.JobUpdate{},
		&model.PhotoApproval{},
		&model.ClockEntry{},
		&model.Notification{},
		&model.TechnicianProgress{},
	); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}

func Principal(role model.UserRole) model.Principal {
	return model.Principal{UserID: uuid.New(), Role: role}
}

func Technician() model.Principal {
	return Principal(model.UserRoleTechnician)
}

func Supervisor() model.Principal {
	return Principal(model.UserRoleSupervisor)
}

func Manager() model.Principal {
	return Principal(model.UserRoleManager)
}
