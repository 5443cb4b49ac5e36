package storage

import (
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Karagwa/ChapFarm/internal/models"
)

// Options for opening the database connection.
type Options struct {
	Dialect  string // "mysql" or "sqlite"
	Address  string
	User     string
	Password string
	Schema   string
	Path     string // sqlite file path, ":memory:" for tests
}

// Open connects to the configured database and migrates the schema.
func Open(opt *Options) (*gorm.DB, error) {
	switch {
	case opt == nil:
		return nil, errors.New("missing db options")
	case opt.Dialect == "":
		return nil, errors.New("missing db dialect")
	}

	var (
		db  *gorm.DB
		err error
	)

	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	switch opt.Dialect {
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			opt.User, opt.Password, opt.Address, opt.Schema,
		)
		db, err = gorm.Open(mysql.Open(dsn), gormCfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(opt.Path), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported db dialect: %s", opt.Dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", opt.Dialect, err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Farmer{},
		&models.FarmerReport{},
		&models.TransportRequest{},
		&models.USSDSession{},
		&models.Advice{},
		&models.WeatherAlert{},
		&models.AgricultureAlert{},
		&models.TransportProvider{},
		&models.AgricultureAuthority{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return db, nil
}
