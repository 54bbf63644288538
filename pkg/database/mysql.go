// Package database 负责初始化 MySQL 与 Redis 连接。
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sqlchat-go/internal/config"
	"sqlchat-go/pkg/log"
)

// InitMySQL 初始化 MySQL 数据库连接池。
// 返回的 *gorm.DB 同时服务于 ORM 仓储与翻译 SQL 执行器（通过 DB() 取得 *sql.DB）。
func InitMySQL(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	log.Info("MySQL database connected successfully")
	return db, nil
}

// AutoMigrate 创建或更新应用自身的表（用户、会话历史、查询审计）。
// 学生/科目业务表由外部维护，不在此处迁移。
func AutoMigrate(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Infof("AutoMigrate 完成，共 %d 张表", len(models))
	return nil
}
