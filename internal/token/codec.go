// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AdminKit Contributors

// Package token signs claim sets as HS256 JWTs and optionally seals them in an
// XChaCha20-Poly1305 envelope.
package token

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrInvalidToken is wrapped by every decode failure.
var ErrInvalidToken = errors.New("invalid token")

const (
	envelopePrefix = "v1."
	envelopeInfo   = "adminkit token envelope v1"
)

// Codec issues and decodes tokens. It is safe for concurrent use.
type Codec struct {
	signingKey []byte
	aead       aeadCipher
	random     io.Reader
	ephemeral  bool

	schemas sync.Map // reflect.Type -> *jschema.Schema
}

type aeadCipher interface {
	NonceSize() int
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// Option configures a Codec.
type Option func(*Codec)

// WithRandom overrides the source used for nonces and generated keys.
func WithRandom(random io.Reader) Option {
	return func(c *Codec) { c.random = random }
}

// NewCodec creates a Codec. An empty signingSecret is replaced by a random
// UUID and an empty encryptionKey by 32 random bytes, so tokens issued by one
// process are rejected by the next.
func NewCodec(signingSecret, encryptionKey string, opts ...Option) (*Codec, error) {
	c := &Codec{random: rand.Reader}
	for _, opt := range opts {
		opt(c)
	}

	if signingSecret == "" {
		signingSecret = uuid.NewString()
		c.ephemeral = true
	}
	c.signingKey = []byte(signingSecret)

	key := make([]byte, chacha20poly1305.KeySize)
	if encryptionKey == "" {
		if _, err := io.ReadFull(c.random, key); err != nil {
			return nil, oops.Code("TOKEN_KEY_GENERATION_FAILED").Wrap(err)
		}
		c.ephemeral = true
	} else {
		kdf := hkdf.New(sha256.New, []byte(encryptionKey), nil, []byte(envelopeInfo))
		if _, err := io.ReadFull(kdf, key); err != nil {
			return nil, oops.Code("TOKEN_KEY_DERIVATION_FAILED").Wrap(err)
		}
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, oops.Code("TOKEN_KEY_DERIVATION_FAILED").Wrap(err)
	}
	c.aead = aead

	return c, nil
}

// Ephemeral reports whether any key was generated rather than configured.
func (c *Codec) Ephemeral() bool {
	return c.ephemeral
}

// Issue signs claims, which must marshal to a JSON object. With encrypt the
// signed token is sealed in an envelope.
func (c *Codec) Issue(claims any, encrypt bool) (string, error) {
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", oops.Code("TOKEN_ENCODE_FAILED").Wrap(err)
	}
	mapped := jwt.MapClaims{}
	if err := json.Unmarshal(raw, &mapped); err != nil {
		return "", oops.Code("TOKEN_ENCODE_FAILED").
			With("claims_type", reflect.TypeOf(claims).String()).
			Wrap(err)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mapped).SignedString(c.signingKey)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	if !encrypt {
		return signed, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", oops.Code("TOKEN_ENCRYPTION_FAILED").Wrap(err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(signed), nil)

	return envelopePrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecodeSigned verifies an unencrypted token and decodes its claims into dst.
func (c *Codec) DecodeSigned(token string, dst any) error {
	claims, err := c.verify(token)
	if err != nil {
		return err
	}
	return decodeInto(claims, dst)
}

// DecodeEncrypted opens an envelope, verifies the inner token and checks the
// claims against the schema of dst before decoding.
func (c *Codec) DecodeEncrypted(token string, dst any) error {
	signed, err := c.open(token)
	if err != nil {
		return err
	}
	claims, err := c.verify(signed)
	if err != nil {
		return err
	}
	if err := c.validate(claims, dst); err != nil {
		return err
	}
	return decodeInto(claims, dst)
}

func (c *Codec) open(token string) (string, error) {
	encoded, ok := strings.CutPrefix(token, envelopePrefix)
	if !ok {
		return "", oops.Code("TOKEN_MALFORMED").
			With("reason", "missing envelope prefix").
			Wrap(ErrInvalidToken)
	}
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", oops.Code("TOKEN_MALFORMED").With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", oops.Code("TOKEN_MALFORMED").With("reason", "envelope too short").Wrap(ErrInvalidToken)
	}
	plain, err := c.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", oops.Code("TOKEN_DECRYPTION_FAILED").With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	return string(plain), nil
}

func (c *Codec) verify(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return c.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, oops.Code("TOKEN_SIGNATURE_INVALID").With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	if !parsed.Valid {
		return nil, oops.Code("TOKEN_SIGNATURE_INVALID").Wrap(ErrInvalidToken)
	}
	return claims, nil
}

func (c *Codec) validate(claims jwt.MapClaims, dst any) error {
	sch, err := c.schemaFor(dst)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(claims)
	if err != nil {
		return oops.Code("TOKEN_SCHEMA_MISMATCH").With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code("TOKEN_SCHEMA_MISMATCH").With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	if err := sch.Validate(doc); err != nil {
		return oops.Code("TOKEN_SCHEMA_MISMATCH").With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	return nil
}

// schemaFor reflects and compiles the JSON Schema of dst's type once per type.
func (c *Codec) schemaFor(dst any) (*jschema.Schema, error) {
	typ := reflect.TypeOf(dst)
	if typ == nil || typ.Kind() != reflect.Pointer {
		return nil, oops.Code("TOKEN_DECODE_TARGET").Errorf("decode target must be a non-nil pointer")
	}
	typ = typ.Elem()

	if cached, ok := c.schemas.Load(typ); ok {
		return cached.(*jschema.Schema), nil
	}

	schemaBytes, err := reflectSchema(typ)
	if err != nil {
		return nil, err
	}
	schemaDoc, err := jschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return nil, oops.Code("TOKEN_SCHEMA_FAILED").With("type", typ.String()).Wrap(err)
	}

	compiler := jschema.NewCompiler()
	if err := compiler.AddResource("claims.json", schemaDoc); err != nil {
		return nil, oops.Code("TOKEN_SCHEMA_FAILED").With("type", typ.String()).Wrap(err)
	}
	sch, err := compiler.Compile("claims.json")
	if err != nil {
		return nil, oops.Code("TOKEN_SCHEMA_FAILED").With("type", typ.String()).Wrap(err)
	}

	actual, _ := c.schemas.LoadOrStore(typ, sch)
	return actual.(*jschema.Schema), nil
}

// ReflectSchema returns the indented JSON Schema that decoded payloads of
// v's type are validated against.
func ReflectSchema(v any) ([]byte, error) {
	typ := reflect.TypeOf(v)
	if typ == nil {
		return nil, oops.Code("TOKEN_SCHEMA_FAILED").Errorf("cannot reflect a nil value")
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	raw, err := reflectSchema(typ)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, oops.Code("TOKEN_SCHEMA_FAILED").With("type", typ.String()).Wrap(err)
	}
	return out.Bytes(), nil
}

func reflectSchema(typ reflect.Type) ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}
	data, err := json.Marshal(r.ReflectFromType(typ))
	if err != nil {
		return nil, oops.Code("TOKEN_SCHEMA_FAILED").With("type", typ.String()).Wrap(err)
	}
	return data, nil
}

func decodeInto(claims jwt.MapClaims, dst any) error {
	raw, err := json.Marshal(claims)
	if err != nil {
		return oops.Code("TOKEN_DECODE_FAILED").With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return oops.Code("TOKEN_DECODE_FAILED").With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	return nil
}
