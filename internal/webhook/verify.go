package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature errors are deliberately coarse; callers only need to reject.
var (
	ErrMissingHeaders = errors.New("missing webhook headers")
	ErrStaleTimestamp = errors.New("webhook timestamp outside tolerance")
	ErrBadSignature   = errors.New("webhook signature mismatch")
)

// Timestamps further than this from now are rejected to stop replays.
const timestampTolerance = 5 * time.Minute

// VerifySignature checks a svix-style webhook signature. The signed content
// is "{id}.{timestamp}.{payload}", the secret is base64 after the whsec_
// prefix, and the signature header holds space-separated "v1,<base64>"
// candidates of which any one may match.
func VerifySignature(secret, msgID, timestamp, signatureHeader string, payload []byte, now time.Time) error {
	if msgID == "" || timestamp == "" || signatureHeader == "" {
		return ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrStaleTimestamp
	}
	diff := now.Sub(time.Unix(ts, 0))
	if diff > timestampTolerance || diff < -timestampTolerance {
		return ErrStaleTimestamp
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range strings.Fields(signatureHeader) {
		version, sig, found := strings.Cut(candidate, ",")
		if !found || version != "v1" {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return nil
		}
	}
	return ErrBadSignature
}

func decodeSecret(secret string) ([]byte, error) {
	raw := strings.TrimPrefix(secret, "whsec_")
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	return key, nil
}
