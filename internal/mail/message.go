// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Package mail composes notification emails and delivers them asynchronously.
package mail

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ContentType is the MIME type of a message body.
type ContentType string

// Supported body types.
const (
	ContentTypeHTML  ContentType = "text/html"
	ContentTypePlain ContentType = "text/plain"
)

// Message is a queued email. Bookkeeping fields are owned by the Dispatcher.
type Message struct {
	ID          ulid.ULID
	From        string
	To          string
	Subject     string
	Body        string
	ContentType ContentType

	attempts    int
	nextAttempt time.Time
	backoff     retry.Backoff
}

// Attempts returns how many delivery attempts have failed so far.
func (m *Message) Attempts() int {
	return m.attempts
}

// Policy decides which recipients may receive mail and stamps the sender.
type Policy struct {
	sender         string
	allowedDomains []string
}

// NewPolicy creates a Policy. Domains match as case-insensitive suffixes of
// the recipient address; an empty list allows no recipient.
func NewPolicy(sender string, allowedDomains []string) *Policy {
	domains := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &Policy{sender: sender, allowedDomains: domains}
}

// Allowed reports whether mail may be sent to the recipient address.
func (p *Policy) Allowed(to string) bool {
	to = strings.ToLower(strings.TrimSpace(to))
	for _, domain := range p.allowedDomains {
		if strings.HasSuffix(to, domain) {
			return true
		}
	}
	return false
}

// Compose builds a message for an allowed recipient.
func (p *Policy) Compose(to, subject, body string, contentType ContentType) (*Message, error) {
	if !p.Allowed(to) {
		return nil, oops.Code("MAIL_DOMAIN_NOT_ALLOWED").
			With("recipient", to).
			Errorf("email domain is not allowed")
	}
	switch contentType {
	case ContentTypeHTML, ContentTypePlain:
	default:
		return nil, oops.Code("MAIL_INVALID_CONTENT_TYPE").
			With("content_type", string(contentType)).
			Errorf("unsupported content type")
	}

	return &Message{
		ID:          ulid.Make(),
		From:        p.sender,
		To:          strings.TrimSpace(to),
		Subject:     subject,
		Body:        body,
		ContentType: contentType,
	}, nil
}
