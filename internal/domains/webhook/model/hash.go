package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeIdempotencyKey derives the dedupe key from gateway-controlled
// fields only. No timestamps: a retried delivery of the same event must
// hash to the same key.
func ComputeIdempotencyKey(gatewayTxnID, orderID string, amountMinor int64, state string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%s", gatewayTxnID, orderID, amountMinor, state)))
	return hex.EncodeToString(sum[:])
}

// RawBodyKey is the fallback idempotency key for bodies that fail to
// parse. Hashing the raw bytes still collapses identical redeliveries
// onto one stored row.
func RawBodyKey(body []byte) string {
	sum := sha256.Sum256(body)
	return "raw:" + hex.EncodeToString(sum[:])
}

// AuthDigest is the expected Authorization header value for callback
// credentials: lowercase hex sha256 of "username:password".
func AuthDigest(username, password string) string {
	sum := sha256.Sum256([]byte(username + ":" + password))
	return hex.EncodeToString(sum[:])
}
