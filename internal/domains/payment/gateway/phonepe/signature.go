package phonepe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ChecksumForPayload signs a base64 request body for POST endpoints.
//
// Provider algorithm:
//  1. raw = base64Payload + apiPath + salt
//  2. digest = lowercase hex sha256(raw)
//  3. header = digest + "###" + saltIndex
func ChecksumForPayload(base64Payload, apiPath, salt, saltIndex string) string {
	sum := sha256.Sum256([]byte(base64Payload + apiPath + salt))
	return hex.EncodeToString(sum[:]) + "###" + saltIndex
}

// ChecksumForPath signs a bodyless GET endpoint; only the path and the
// salt enter the digest.
func ChecksumForPath(apiPath, salt, saltIndex string) string {
	sum := sha256.Sum256([]byte(apiPath + salt))
	return hex.EncodeToString(sum[:]) + "###" + saltIndex
}

// StatusPath builds the transaction-status endpoint path for a merchant
// transaction id.
func StatusPath(merchantID, gatewayTxnID string) string {
	return fmt.Sprintf("%s/%s/%s", statusPath, merchantID, gatewayTxnID)
}
