package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"profitshare-hertz/biz/model"
	"profitshare-hertz/conf"
)

var PostgresClient *pgxpool.Pool
var GormDB *gorm.DB

func Init() {
	// 初始化 Postgres 连接池
	pgConf := conf.GetConf().Postgres
	pool, err := pgxpool.New(context.Background(), pgConf.DSN)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to postgres: %v", err))
	}
	if err := pool.Ping(context.Background()); err != nil {
		panic(fmt.Sprintf("failed to ping postgres: %v", err))
	}
	PostgresClient = pool

	// 初始化 GORM DB
	if err := InitGorm(); err != nil {
		panic(fmt.Sprintf("failed to init gorm: %v", err))
	}
	// 自动迁移表结构
	if err := AutoMigrate(); err != nil {
		panic(fmt.Sprintf("failed to auto migrate: %v", err))
	}
}

func InitGorm() error {
	pgConf := conf.GetConf().Postgres
	db, err := gorm.Open(postgres.Open(pgConf.DSN), &gorm.Config{})
	if err != nil {
		return err
	}
	// 配置读写分离，未配置副本时读写同库
	replicas := make([]gorm.Dialector, 0, len(pgConf.ReplicaDSNs))
	for _, dsn := range pgConf.ReplicaDSNs {
		replicas = append(replicas, postgres.Open(dsn))
	}
	if err := db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
	})); err != nil {
		return err
	}
	GormDB = db
	return nil
}

func AutoMigrate() error {
	if GormDB == nil {
		return gorm.ErrInvalidDB
	}
	return GormDB.AutoMigrate(&model.Wallet{}, &model.CommissionRecord{}, &model.Order{}, &model.TradeState{}, &model.UserReferral{})
}

func GetPool() *pgxpool.Pool {
	if PostgresClient == nil {
		panic("PostgresClient未初始化，请先调用 pg.Init()")
	}
	return PostgresClient
}

// GetWriteDB 主库
func GetWriteDB(ctx context.Context) *gorm.DB {
	return GormDB.Clauses(dbresolver.Write).WithContext(ctx)
}

// GetReadDB 副本优先
func GetReadDB(ctx context.Context) *gorm.DB {
	return GormDB.Clauses(dbresolver.Read).WithContext(ctx)
}
