package render

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/model"
)

const (
	payloadMagic = "GATEPASS"
	keyContext   = "gatepass 2025-01 document fingerprint"

	// FingerprintSize is the number of hash bytes kept, hex encoded in the payload.
	FingerprintSize = 16
)

// Signer computes keyed fingerprints binding a document to the decision it was issued for.
type Signer struct {
	key [32]byte
}

// NewSigner derives the fingerprint key from the server secret.
func NewSigner(secret string) *Signer {
	s := &Signer{}
	blake3.DeriveKey(keyContext, []byte(secret), s.key[:])
	return s
}

// Fingerprint hashes the fields a verifier can check against the stored record.
func (s *Signer) Fingerprint(pass *model.GatePass) string {
	h, err := blake3.NewKeyed(s.key[:])
	if err != nil {
		// key is always 32 bytes
		panic(err)
	}
	approver := ""
	if pass.ApproverID != nil {
		approver = *pass.ApproverID
	}
	decided := ""
	if pass.DecidedAt != nil {
		decided = pass.DecidedAt.UTC().Format(time.RFC3339Nano)
	}
	for _, field := range []string{pass.ID.String(), pass.Code, pass.StudentID, approver, decided} {
		_, _ = h.WriteString(field)
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:FingerprintSize])
}

// Matches reports in constant time whether fingerprint was issued for pass.
func (s *Signer) Matches(pass *model.GatePass, fingerprint string) bool {
	want := s.Fingerprint(pass)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(fingerprint))) == 1
}

// Payload is the content of the QR code printed on a pass.
type Payload struct {
	PassID      uuid.UUID
	Code        string
	Fingerprint string
}

// String encodes p as GATEPASS|ID:<id>|CODE:<code>|FP:<fingerprint>.
func (p Payload) String() string {
	return fmt.Sprintf("%s|ID:%s|CODE:%s|FP:%s", payloadMagic, p.PassID, p.Code, p.Fingerprint)
}

// PayloadFor builds the QR payload of an approved pass.
func (s *Signer) PayloadFor(pass *model.GatePass) Payload {
	return Payload{PassID: pass.ID, Code: pass.Code, Fingerprint: s.Fingerprint(pass)}
}

// ParsePayload decodes a scanned QR payload.
func ParsePayload(raw string) (Payload, error) {
	parts := strings.Split(strings.TrimSpace(raw), "|")
	if len(parts) != 4 || parts[0] != payloadMagic {
		return Payload{}, apperrors.Validation("unrecognized gate pass payload")
	}

	fields := make(map[string]string, 3)
	for _, part := range parts[1:] {
		k, v, ok := strings.Cut(part, ":")
		if !ok || v == "" {
			return Payload{}, apperrors.Validation("malformed payload field %q", part)
		}
		fields[k] = v
	}

	id, err := uuid.Parse(fields["ID"])
	if err != nil {
		return Payload{}, apperrors.Validation("payload has invalid pass id")
	}
	fp := fields["FP"]
	if _, err := hex.DecodeString(fp); err != nil || len(fp) != 2*FingerprintSize {
		return Payload{}, apperrors.Validation("payload has invalid fingerprint")
	}
	if fields["CODE"] == "" {
		return Payload{}, apperrors.Validation("payload is missing pass code")
	}
	return Payload{PassID: id, Code: fields["CODE"], Fingerprint: fp}, nil
}
