// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/postgres"
)

var _ = Describe("UserRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.UserRepository
	)

	newUser := func(email, username string) *auth.NewUser {
		return &auth.NewUser{
			Email:        email,
			Username:     username,
			FirstName:    "Ann",
			LastName:     "Lee",
			DateOfBirth:  time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
			PasswordHash: "hash",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewUserRepository(testPool)
		truncateUsers()
	})

	Describe("Create", func() {
		It("assigns id, active flag and creation time", func() {
			user, err := repo.Create(ctx, newUser("a@x.com", "Abcd1234"))
			Expect(err).NotTo(HaveOccurred())
			Expect(user.ID).To(BeNumerically(">", 0))
			Expect(user.IsActive).To(BeTrue())
			Expect(user.CreatedAt).To(BeTemporally("~", time.Now(), time.Minute))
			Expect(user.DateOfBirth).To(Equal(time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)))
		})

		It("rejects a duplicate email with the email constraint", func() {
			_, err := repo.Create(ctx, newUser("a@x.com", "Abcd1234"))
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.Create(ctx, newUser("a@x.com", "Zzzz9999"))
			Expect(err).To(MatchError(auth.ErrDuplicateKey))
			Expect(auth.DuplicateConstraint(err)).To(Equal("users_email_key"))

			_, err = repo.FindByUsername(ctx, "Zzzz9999")
			Expect(err).To(MatchError(auth.ErrNotFound), "nothing persisted")
		})

		It("rejects a duplicate username with the username constraint", func() {
			_, err := repo.Create(ctx, newUser("a@x.com", "Abcd1234"))
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.Create(ctx, newUser("b@x.com", "Abcd1234"))
			Expect(err).To(MatchError(auth.ErrDuplicateKey))
			Expect(auth.DuplicateConstraint(err)).To(Equal("users_username_key"))
		})

		It("treats emails as case-sensitive", func() {
			_, err := repo.Create(ctx, newUser("a@x.com", "Abcd1234"))
			Expect(err).NotTo(HaveOccurred())
			_, err = repo.Create(ctx, newUser("A@x.com", "Abcd1235"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("lets exactly one concurrent create win", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 8)
			for i := range 8 {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := repo.Create(ctx, newUser("race@x.com", "Race000"+string(rune('0'+i))))
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)

			succeeded := 0
			for err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				Expect(err).To(MatchError(auth.ErrDuplicateKey))
			}
			Expect(succeeded).To(Equal(1))
		})
	})

	Describe("Find", func() {
		It("finds by email, username and id", func() {
			created, err := repo.Create(ctx, newUser("a@x.com", "Abcd1234"))
			Expect(err).NotTo(HaveOccurred())

			byEmail, err := repo.FindByEmail(ctx, "a@x.com")
			Expect(err).NotTo(HaveOccurred())
			byUsername, err := repo.FindByUsername(ctx, "Abcd1234")
			Expect(err).NotTo(HaveOccurred())
			byID, err := repo.FindByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())

			Expect(byEmail.ID).To(Equal(created.ID))
			Expect(byUsername.ID).To(Equal(created.ID))
			Expect(byID.Email).To(Equal("a@x.com"))
		})

		It("returns ErrNotFound for unknown values", func() {
			_, err := repo.FindByEmail(ctx, "none@x.com")
			Expect(err).To(MatchError(auth.ErrNotFound))
			_, err = repo.FindByID(ctx, 404)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})

	Describe("with the auth service", func() {
		var svc *auth.Service

		BeforeEach(func() {
			tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: []byte("integration-secret-integration-secret")})
			Expect(err).NotTo(HaveOccurred())
			hasher, err := auth.NewPasswordHasher(auth.AlgorithmArgon2id, bcrypt.MinCost)
			Expect(err).NotTo(HaveOccurred())
			svc, err = auth.NewServiceWithLogger(repo, hasher, tokens,
				auth.NewUsernameGenerator(repo), slog.New(slog.NewTextHandler(io.Discard, nil)))
			Expect(err).NotTo(HaveOccurred())
		})

		It("registers, logs in and resolves the token", func() {
			registered, err := svc.Register(ctx, auth.RegisterInput{
				Email:       "a@x.com",
				FirstName:   "Ann",
				LastName:    "Lee",
				DateOfBirth: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
				Password:    "secret1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(registered.User.Username).To(MatchRegexp(`^[A-Za-z0-9]{8}$`))

			session, err := svc.Login(ctx, "a@x.com", "secret1")
			Expect(err).NotTo(HaveOccurred())

			view, err := svc.WhoAmI(ctx, session.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.ID).To(Equal(registered.User.ID))
		})

		It("rejects whoami once the account is deactivated", func() {
			registered, err := svc.Register(ctx, auth.RegisterInput{
				Email:       "b@x.com",
				FirstName:   "Bo",
				LastName:    "Ng",
				DateOfBirth: time.Date(1985, 1, 2, 0, 0, 0, 0, time.UTC),
				Password:    "secret1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.SetActive(ctx, registered.User.ID, false)).To(Succeed())

			_, err = svc.WhoAmI(ctx, registered.Token)
			Expect(err).To(MatchError(auth.ErrAccountInactive))
		})
	})
})
