// Файл: internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"

	"dispatchtrack/internal/config"
)

const createTablesSQL = `
        CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            name VARCHAR(100) NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('车间地调', '区域调度员', '超级管理员', '供应商', '对账人员')),
            company_name VARCHAR(100),
            is_blocked BOOLEAN DEFAULT FALSE,
            block_reason TEXT,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS dispatch_tasks (
            task_id VARCHAR(20) PRIMARY KEY,
            dispatch_track TEXT NOT NULL CHECK (dispatch_track IN ('轨道A', '轨道B')),
            requirement_type TEXT NOT NULL CHECK (requirement_type IN ('正班', '加班')),
            transport_type TEXT NOT NULL CHECK (transport_type IN ('单程', '往返')),
            start_location VARCHAR(100) NOT NULL,
            end_location VARCHAR(100) NOT NULL,
            carrier_company VARCHAR(100) NOT NULL,
            weight VARCHAR(8) NOT NULL,
            volume DOUBLE PRECISION NOT NULL CHECK (volume > 0),
            required_time TIMESTAMPTZ NOT NULL,
            remarks TEXT,
            initiator_user_id BIGINT NOT NULL,
            initiator_role TEXT NOT NULL,
            status TEXT NOT NULL CHECK (status IN ('待提交', '待调度员审核', '待供应商响应', '供应商已响应', '车间已核查', '供应商已确认', '任务结束', '已取消')),
            current_handler_role TEXT,
            current_handler_user_id BIGINT,
            assigned_supplier_id BIGINT,
            audit_required BOOLEAN NOT NULL DEFAULT TRUE,
            audit_status TEXT,
            auditor_role TEXT,
            auditor_user_id BIGINT,
            audit_time TIMESTAMPTZ,
            audit_note TEXT,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        );
        CREATE TABLE IF NOT EXISTS vehicles (
            id UUID PRIMARY KEY,
            task_id VARCHAR(20) NOT NULL REFERENCES dispatch_tasks(task_id),
            manifest_number VARCHAR(20) NOT NULL,
            manifest_serial VARCHAR(20),
            dispatch_number VARCHAR(20) NOT NULL,
            license_plate VARCHAR(16) NOT NULL,
            carriage_number VARCHAR(20),
            volume DOUBLE PRECISION,
            supplier_id BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            CONSTRAINT vehicles_task_id_key UNIQUE (task_id),
            CONSTRAINT vehicles_manifest_number_key UNIQUE (manifest_number),
            CONSTRAINT vehicles_dispatch_number_key UNIQUE (dispatch_number)
        );
        CREATE TABLE IF NOT EXISTS dispatch_status_history (
            id BIGSERIAL PRIMARY KEY,
            task_id VARCHAR(20) NOT NULL REFERENCES dispatch_tasks(task_id),
            status_change TEXT NOT NULL,
            operator VARCHAR(100) NOT NULL,
            operator_id BIGINT,
            operator_role TEXT,
            note TEXT,
            created_at TIMESTAMPTZ NOT NULL
        );`

const createIndexesSQL = `
        CREATE INDEX IF NOT EXISTS idx_dispatch_tasks_status ON dispatch_tasks(status);
        CREATE INDEX IF NOT EXISTS idx_dispatch_tasks_track_status ON dispatch_tasks(dispatch_track, status);
        CREATE INDEX IF NOT EXISTS idx_dispatch_tasks_handler_role ON dispatch_tasks(current_handler_role);
        CREATE INDEX IF NOT EXISTS idx_dispatch_tasks_created_at ON dispatch_tasks(created_at);
        CREATE INDEX IF NOT EXISTS idx_dispatch_status_history_task ON dispatch_status_history(task_id, created_at);`

// migrations - идемпотентные изменения схемы для баз, созданных ранними версиями.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "dispatch_tasks.assigned_supplier_id",
		sql:  `ALTER TABLE dispatch_tasks ADD COLUMN IF NOT EXISTS assigned_supplier_id BIGINT;`,
	},
	{
		name: "dispatch_tasks.legacy_audit_label",
		// старая метка статуса аудита
		sql: `UPDATE dispatch_tasks SET status = '待调度员审核' WHERE status = '待区域调度员审核';`,
	},
	{
		name: "vehicles.manifest_serial",
		sql:  `ALTER TABLE vehicles ADD COLUMN IF NOT EXISTS manifest_serial VARCHAR(20);`,
	},
	{
		name: "dispatch_status_history.operator_role",
		sql: `
                ALTER TABLE dispatch_status_history ADD COLUMN IF NOT EXISTS operator_id BIGINT;
                ALTER TABLE dispatch_status_history ADD COLUMN IF NOT EXISTS operator_role TEXT;
            `,
	},
}

// Open открывает пул соединений с параметрами из конфигурации и проверяет связь.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	conn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}
	conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	conn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	conn.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ошибка проверки соединения с базой данных: %w", err)
	}
	return conn, nil
}

// InitDB создаёт таблицы, применяет миграции и индексы.
func InitDB(ctx context.Context, conn *sql.DB, logger logrus.FieldLogger) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции для создания таблиц: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			logger.Warnf("InitDB: откат транзакции из-за ошибки: %v", err)
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, createTablesSQL); err != nil {
		return fmt.Errorf("ошибка создания таблиц: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции создания таблиц: %w", err)
	}

	for _, m := range migrations {
		if _, mErr := conn.ExecContext(ctx, m.sql); mErr != nil {
			if strings.Contains(mErr.Error(), "already exists") {
				logger.WithField("migration", m.name).Info("InitDB: миграция пропущена, объект уже существует")
				continue
			}
			return fmt.Errorf("ошибка миграции схемы ('%s'): %w", m.name, mErr)
		}
		logger.WithField("migration", m.name).Debug("InitDB: миграция применена")
	}

	if _, err := conn.ExecContext(ctx, createIndexesSQL); err != nil {
		return fmt.Errorf("ошибка создания индексов: %w", err)
	}

	logger.Info("InitDB: схема базы данных готова")
	return nil
}
