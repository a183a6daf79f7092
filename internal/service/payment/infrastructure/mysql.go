// payment-service/internal/infrastructure/mysql.go
package infrastructure

import (
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMysqlDB 打开 MySQL 连接并完成订单历史表的迁移。
// 先用 database/sql 建连接是为了直接控制连接池参数，再交给 GORM 托管。
func NewMysqlDB(dsn string) (*gorm.DB, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&OrderModel{}); err != nil {
		return nil, err
	}
	return db, nil
}
