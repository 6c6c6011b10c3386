package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/savestats/internal/platform/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Options struct {
	Driver string
	// DSN is the Postgres connection string or the SQLite file path.
	DSN           string
	SlowThreshold time.Duration
}

type Service struct {
	db     *gorm.DB
	log    *logger.Logger
	driver string
}

func Open(opts Options, logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService")
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))

	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		path := strings.TrimSpace(opts.DSN)
		if path == "" {
			return nil, fmt.Errorf("sqlite path required")
		}
		if !strings.Contains(path, "?") {
			path += "?_busy_timeout=5000"
		}
		dialector = sqlite.Open(path)
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", opts.Driver)
	}

	slow := opts.SlowThreshold
	if slow <= 0 {
		slow = time.Second
	}
	gormLog := gormLogger.New(
		zapWriter{log: serviceLog},
		gormLogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	serviceLog.Debug("database opened", "driver", driver)
	return &Service{db: db, log: serviceLog, driver: driver}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Driver() string { return s.driver }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// zapWriter routes gorm's printf-style logger into the structured logger.
type zapWriter struct {
	log *logger.Logger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.log.Warn("gorm", "detail", fmt.Sprintf(format, args...))
}
