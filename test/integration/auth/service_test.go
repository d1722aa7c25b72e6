// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

//go:build integration

package auth_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/adminkit/adminkit/internal/auth"
	"github.com/adminkit/adminkit/internal/auth/postgres"
	"github.com/adminkit/adminkit/internal/mail"
	"github.com/adminkit/adminkit/internal/otp"
	"github.com/adminkit/adminkit/internal/token"
)

// zeroReader makes every issued one-time code "000000".
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

const fixedCode = "000000"

func errorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

var _ = Describe("Service backed by PostgreSQL", func() {
	var (
		svc        *auth.Service
		dispatcher *mail.Dispatcher
	)

	BeforeEach(func() {
		cleanupUsers(env.ctx, env.pool)

		hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		codec, err := token.NewCodec("integration-secret", "integration-key")
		Expect(err).NotTo(HaveOccurred())

		transport, err := mail.NewSMTPTransport(mail.SMTPConfig{Host: "127.0.0.1", Port: 1})
		Expect(err).NotTo(HaveOccurred())
		dispatcher, err = mail.NewDispatcher(transport, mail.NewPolicy("noreply@example.com", []string{"example.com"}),
			mail.Config{PollInterval: 20 * time.Millisecond, DryRun: true})
		Expect(err).NotTo(HaveOccurred())
		dispatcher.Start(env.ctx)
		DeferCleanup(dispatcher.Stop)

		svc, err = auth.NewService(postgres.NewUserRepository(env.pool), hasher, codec,
			otp.NewRegistry(otp.WithRandom(zeroReader{})), dispatcher)
		Expect(err).NotTo(HaveOccurred())
	})

	It("registers, verifies and logs in a user", func() {
		alice, err := svc.Register(env.ctx, auth.Registration{UserName: "alice", Email: "Alice@Example.com", Password: "pw123"})
		Expect(err).NotTo(HaveOccurred())
		Expect(alice.Email).To(Equal("alice@example.com"))

		tok, err := svc.IssuePurposeToken(env.ctx, otp.PurposeUserRegistration, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		accepted, err := svc.RequestEmailVerification(env.ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(accepted).To(BeTrue())
		Eventually(dispatcher.Len).WithTimeout(time.Second).Should(BeZero())

		Expect(svc.VerifyEmail(env.ctx, tok, fixedCode)).To(Succeed())

		bearer, err := svc.Login(env.ctx, auth.UserNameCredential("alice", "pw123"))
		Expect(err).NotTo(HaveOccurred())
		me, err := svc.CurrentUser(env.ctx, bearer)
		Expect(err).NotTo(HaveOccurred())
		Expect(me.UserName).To(Equal("alice"))
		Expect(me.Verified).To(BeTrue())
	})

	It("reports whether a duplicate email was verified", func() {
		_, err := svc.Register(env.ctx, auth.Registration{UserName: "alice", Email: "alice@example.com", Password: "pw"})
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Register(env.ctx, auth.Registration{UserName: "alice2", Email: "ALICE@example.com", Password: "pw"})
		Expect(errorCode(err)).To(Equal(auth.CodeEmailRegisteredUnverified))

		_, err = svc.Register(env.ctx, auth.Registration{UserName: "alice", Email: "other@example.com", Password: "pw"})
		Expect(errorCode(err)).To(Equal(auth.CodeUserNameTaken))
	})

	It("resets a password with a one-time code", func() {
		_, err := svc.Register(env.ctx, auth.Registration{UserName: "alice", Email: "alice@example.com", Password: "old"})
		Expect(err).NotTo(HaveOccurred())

		tok, err := svc.IssuePurposeToken(env.ctx, otp.PurposePasswordReset, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())
		_, err = svc.RequestPasswordReset(env.ctx, "alice@example.com")
		Expect(err).NotTo(HaveOccurred())

		Expect(svc.ResetPassword(env.ctx, tok, fixedCode, "new", "new")).To(Succeed())

		_, err = svc.Login(env.ctx, auth.EmailCredential("alice@example.com", "old"))
		Expect(errorCode(err)).To(Equal(auth.CodePasswordMismatch))
		_, err = svc.Login(env.ctx, auth.EmailCredential("alice@example.com", "new"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("seeds the administrator once", func() {
		seed := auth.AdminSeed{UserName: "root", Email: "root@example.com", Password: "admin-secret"}

		admin, created, err := svc.EnsureAdmin(env.ctx, seed)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeTrue())
		Expect(admin.Role).To(Equal(auth.RoleAdmin))

		again, created, err := svc.EnsureAdmin(env.ctx, seed)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeFalse())
		Expect(again.ID).To(Equal(admin.ID))
	})
})
