//go:build testutil
// +build testutil

// Package testdb поднимает Postgres в контейнере и накатывает на него миграции.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/cenkalti/backoff/v4"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const image = "postgres:17-alpine"

type DBHandle struct {
	DB      *sql.DB
	closers []func()
}

// Close закрывает пул и гасит контейнер, в обратном порядке запуска.
func (h *DBHandle) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
	h.closers = nil
}

func (h *DBHandle) onClose(fn func()) { h.closers = append(h.closers, fn) }

// Start — чистая база с актуальной схемой. Справочник групп не сидируется:
// тесты создают группы сами.
func Start(ctx context.Context) (_ *DBHandle, err error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	h := &DBHandle{}
	h.onClose(cancel)
	defer func() {
		if err != nil {
			h.Close()
		}
	}()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage(image),
		postgres.WithDatabase("sportclub"),
		postgres.WithUsername("sportclub"),
		postgres.WithPassword("sportclub"),
		tc.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres container: %w", err)
	}
	h.onClose(func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		_ = pg.Terminate(stopCtx)
	})

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, err
	}

	// первый коннект после старта иногда отбивается, пока postgres перезапускается после init
	bo := backoff.WithContext(backoff.NewConstantBackOff(250*time.Millisecond), ctx)
	err = backoff.Retry(func() error {
		conn, openErr := db.Open(ctx, dsn)
		if openErr != nil {
			return openErr
		}
		h.DB = conn
		return nil
	}, bo)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	h.onClose(func() { _ = h.DB.Close() })

	if err := db.Migrate(h.DB); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return h, nil
}
