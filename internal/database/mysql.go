package database

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MySQLConfig holds MySQL connection and pool settings
type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// LogLevel is one of "silent", "error", "warn", "info"
	LogLevel   string
	MaxRetries int
	RetryDelay time.Duration
}

// GetMySQLConfig returns MySQL configuration with defaults
func GetMySQLConfig() *MySQLConfig {
	viper.SetDefault("mysql.host", "localhost")
	viper.SetDefault("mysql.port", 3306)
	viper.SetDefault("mysql.user", "root")
	viper.SetDefault("mysql.password", "password")
	viper.SetDefault("mysql.name", "wallet")
	viper.SetDefault("mysql.max_open_conns", 25)
	viper.SetDefault("mysql.max_idle_conns", 5)
	viper.SetDefault("mysql.conn_max_lifetime", time.Minute*5)
	viper.SetDefault("mysql.log_level", "error")
	viper.SetDefault("mysql.max_retries", 10)
	viper.SetDefault("mysql.retry_delay", 2*time.Second)

	return &MySQLConfig{
		Host:            viper.GetString("mysql.host"),
		Port:            viper.GetInt("mysql.port"),
		User:            viper.GetString("mysql.user"),
		Password:        viper.GetString("mysql.password"),
		DBName:          viper.GetString("mysql.name"),
		MaxOpenConns:    viper.GetInt("mysql.max_open_conns"),
		MaxIdleConns:    viper.GetInt("mysql.max_idle_conns"),
		ConnMaxLifetime: viper.GetDuration("mysql.conn_max_lifetime"),
		LogLevel:        viper.GetString("mysql.log_level"),
		MaxRetries:      viper.GetInt("mysql.max_retries"),
		RetryDelay:      viper.GetDuration("mysql.retry_delay"),
	}
}

// DSN format: user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=UTC
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
	)
}

// OpenMySQL connects through GORM, retrying while the server comes up.
func OpenMySQL(cfg *MySQLConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         newGormLogger(cfg.LogLevel),
		TranslateError: true,
	}

	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var db *gorm.DB
	var err error
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(mysql.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				if err = sqlDB.Ping(); err == nil {
					break
				}
			} else {
				err = dbErr
			}
		}

		if i < attempts-1 {
			log.Printf("Failed to connect to MySQL (attempt %d/%d): %v. Retrying in %v...", i+1, attempts, err, cfg.RetryDelay)
			time.Sleep(cfg.RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql after %d attempts: %w", attempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.db: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Println("MySQL connection established")
	return db, nil
}

func newGormLogger(level string) logger.Interface {
	var logLevel logger.LogLevel
	switch level {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "silent":
		logLevel = logger.Silent
	default:
		logLevel = logger.Error
	}
	return logger.Default.LogMode(logLevel)
}
