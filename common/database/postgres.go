package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/common/config"

	_ "github.com/lib/pq"
)

// NewPostgresDB 打开 Postgres 连接池并 Ping 一次
// 连接不可用属于系统级错误，由调用方决定是否退出
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Close 关闭连接池（允许 nil）
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
