package renderapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"
)

const tokenTTL = 30 * time.Minute

type apiClaims struct {
	Issuer    string `json:"iss"`
	Exp       int64  `json:"exp"`
	NotBefore int64  `json:"nbf"`
}

// bearerToken signs a short-lived HS256 token from the access/secret key
// pair. The provider requires iss = access key, a 30-minute expiry and a
// small nbf skew allowance.
func bearerToken(accessKey, secretKey string, now time.Time) string {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}
	headerJSON, _ := json.Marshal(header)
	payloadJSON, _ := json.Marshal(apiClaims{
		Issuer:    accessKey,
		Exp:       now.Add(tokenTTL).Unix(),
		NotBefore: now.Add(-5 * time.Second).Unix(),
	})
	data := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payloadJSON)
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(data))
	return data + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
