package credential

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"

	"github.com/google/uuid"
)

const (
	otpMin          = 100000
	otpSpan         = 900000
	tokenSecretSize = 32

	requestIDPrefix         = "OTP-"
	resetTokenPrefix        = "RT-"
	verificationTokenPrefix = "VT-"
)

// secrets draws codes and tokens from an entropy source. Tests swap the
// reader for a deterministic one.
type secrets struct {
	rand io.Reader
}

func (g secrets) reader() io.Reader {
	if g.rand == nil {
		return rand.Reader
	}
	return g.rand
}

// code returns a uniform six digit code in [100000, 999999].
func (g secrets) code() (string, error) {
	n, err := rand.Int(g.reader(), big.NewInt(otpSpan))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", otpMin+n.Int64()), nil
}

func (g secrets) requestID() (string, error) {
	id, err := uuid.NewRandomFromReader(g.reader())
	if err != nil {
		return "", fmt.Errorf("generate request id: %w", err)
	}
	return requestIDPrefix + id.String(), nil
}

func (g secrets) token(prefix string) (string, error) {
	var raw [tokenSecretSize]byte
	if _, err := io.ReadFull(g.reader(), raw[:]); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
