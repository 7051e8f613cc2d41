package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

func sign(t *testing.T, secret, msgID, timestamp string, payload []byte) string {
	t.Helper()
	key, err := decodeSecret(secret)
	require.NoError(t, err)
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(payload)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureValid(t *testing.T) {
	now := time.Now()
	ts := strconv.FormatInt(now.Unix(), 10)
	payload := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	sig := sign(t, testSecret, "msg_1", ts, payload)

	err := VerifySignature(testSecret, "msg_1", ts, sig, payload, now)
	assert.NoError(t, err)
}

func TestVerifySignatureMultipleCandidates(t *testing.T) {
	now := time.Now()
	ts := strconv.FormatInt(now.Unix(), 10)
	payload := []byte(`{}`)
	good := sign(t, testSecret, "msg_1", ts, payload)
	header := "v1,AAAA v2,ignored " + good

	err := VerifySignature(testSecret, "msg_1", ts, header, payload, now)
	assert.NoError(t, err)
}

func TestVerifySignatureTampered(t *testing.T) {
	now := time.Now()
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := sign(t, testSecret, "msg_1", ts, []byte(`{"a":1}`))

	err := VerifySignature(testSecret, "msg_1", ts, sig, []byte(`{"a":2}`), now)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	now := time.Now()
	old := now.Add(-10 * time.Minute)
	ts := strconv.FormatInt(old.Unix(), 10)
	payload := []byte(`{}`)
	sig := sign(t, testSecret, "msg_1", ts, payload)

	err := VerifySignature(testSecret, "msg_1", ts, sig, payload, now)
	assert.ErrorIs(t, err, ErrStaleTimestamp)

	future := strconv.FormatInt(now.Add(10*time.Minute).Unix(), 10)
	sig = sign(t, testSecret, "msg_1", future, payload)
	err = VerifySignature(testSecret, "msg_1", future, sig, payload, now)
	assert.ErrorIs(t, err, ErrStaleTimestamp)
}

func TestVerifySignatureMissingHeaders(t *testing.T) {
	err := VerifySignature(testSecret, "", "", "", nil, time.Now())
	assert.ErrorIs(t, err, ErrMissingHeaders)
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	now := time.Now()
	ts := strconv.FormatInt(now.Unix(), 10)
	payload := []byte(`{}`)
	sig := sign(t, testSecret, "msg_1", ts, payload)

	other := "whsec_" + base64.StdEncoding.EncodeToString([]byte("another-secret-key-entirely"))
	err := VerifySignature(other, "msg_1", ts, sig, payload, now)
	assert.ErrorIs(t, err, ErrBadSignature)
}
