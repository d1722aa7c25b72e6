// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

//go:build integration

package auth_test

import (
	"errors"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/auth/postgres"
)

var _ = Describe("UserRepository", func() {
	var repo *postgres.UserRepository

	BeforeEach(func() {
		cleanupUsers(env.ctx, env.pool)
		repo = postgres.NewUserRepository(env.pool)
	})

	newUser := func(name, email string) *auth.User {
		user, err := auth.NewUser(name, email, "$2a$04$placeholderhash", auth.RoleGuest)
		Expect(err).NotTo(HaveOccurred())
		return user
	}

	Describe("Create", func() {
		It("stores a user that can be read back by every key", func() {
			alice := newUser("alice", "alice@example.com")
			Expect(repo.Create(env.ctx, alice)).To(Succeed())

			byEmail, err := repo.GetByEmail(env.ctx, "ALICE@Example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail.ID).To(Equal(alice.ID))
			Expect(byEmail.Role).To(Equal(auth.RoleGuest))
			Expect(byEmail.Verified).To(BeFalse())

			byName, err := repo.GetByUserName(env.ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(byName.Email).To(Equal("alice@example.com"))

			byID, err := repo.GetByID(env.ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.UserName).To(Equal("alice"))
		})

		It("rejects a second user with the same name", func() {
			Expect(repo.Create(env.ctx, newUser("alice", "alice@example.com"))).To(Succeed())
			err := repo.Create(env.ctx, newUser("alice", "other@example.com"))
			Expect(errors.Is(err, auth.ErrDuplicate)).To(BeTrue())
		})

		It("treats emails differing only in case as duplicates", func() {
			Expect(repo.Create(env.ctx, newUser("alice", "alice@example.com"))).To(Succeed())
			err := repo.Create(env.ctx, newUser("alice2", "Alice@Example.com"))
			Expect(errors.Is(err, auth.ErrDuplicate)).To(BeTrue())
		})
	})

	Describe("lookups", func() {
		It("returns ErrNotFound for unknown users", func() {
			_, err := repo.GetByEmail(env.ctx, "nobody@example.com")
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())

			_, err = repo.GetByUserName(env.ctx, "nobody")
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())

			_, err = repo.GetByID(env.ctx, ulid.Make())
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("updates", func() {
		It("replaces the password hash and marks the email verified", func() {
			Expect(repo.Create(env.ctx, newUser("alice", "alice@example.com"))).To(Succeed())

			Expect(repo.UpdatePassword(env.ctx, "alice@example.com", "$2a$04$newhash")).To(Succeed())
			Expect(repo.MarkEmailVerified(env.ctx, "ALICE@example.com")).To(Succeed())

			user, err := repo.GetByEmail(env.ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.PasswordHash).To(Equal("$2a$04$newhash"))
			Expect(user.Verified).To(BeTrue())
		})

		It("reports unknown emails as not found", func() {
			err := repo.UpdatePassword(env.ctx, "nobody@example.com", "hash")
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())

			err = repo.MarkEmailVerified(env.ctx, "nobody@example.com")
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})
	})
})
