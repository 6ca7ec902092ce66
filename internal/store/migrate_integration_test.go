// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/authd/internal/store"
)

var _ = Describe("Migrator against PostgreSQL", Ordered, func() {
	var (
		ctx      context.Context
		migrator *store.Migrator
		pool     *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		pool, err = store.Connect(ctx, store.PoolConfig{URL: connStr, ConnectRetries: 5})
		Expect(err).NotTo(HaveOccurred())

		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if migrator != nil {
			_ = migrator.Close()
		}
		if pool != nil {
			pool.Close()
		}
	})

	tableExists := func() bool {
		var exists bool
		err := pool.QueryRow(ctx, `SELECT to_regclass('public.users') IS NOT NULL`).Scan(&exists)
		Expect(err).NotTo(HaveOccurred())
		return exists
	}

	It("starts at version zero with everything pending", func() {
		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(BeZero())
		Expect(status.Pending).To(ConsistOf(uint(1)))
	})

	It("creates the users table on up", func() {
		Expect(migrator.Up()).To(Succeed())
		Expect(tableExists()).To(BeTrue())

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))
		Expect(dirty).To(BeFalse())
	})

	It("is idempotent", func() {
		Expect(migrator.Up()).To(Succeed())
	})

	It("names the unique constraints", func() {
		rows, err := pool.Query(ctx, `
			SELECT conname FROM pg_constraint
			WHERE conrelid = 'users'::regclass AND contype = 'u'
			ORDER BY conname`)
		Expect(err).NotTo(HaveOccurred())
		defer rows.Close()

		var names []string
		for rows.Next() {
			var name string
			Expect(rows.Scan(&name)).To(Succeed())
			names = append(names, name)
		}
		Expect(rows.Err()).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"users_email_key", "users_username_key"}))
	})

	It("drops the table on down and restores it with steps", func() {
		Expect(migrator.Down()).To(Succeed())
		Expect(tableExists()).To(BeFalse())

		Expect(migrator.Steps(1)).To(Succeed())
		Expect(tableExists()).To(BeTrue())
	})
})
