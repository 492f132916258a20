package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/IgorGrieder/tinylink/internal/constants"
	"github.com/IgorGrieder/tinylink/pkg/httputils"
)

const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware guards mutating routes. With no keys configured every
// request passes, which keeps local setups usable.
func APIKeyMiddleware(allowedKeys []string) func(http.Handler) http.Handler {
	digests := keyDigests(allowedKeys)
	if len(digests) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if key == "" || !keyAllowed(digests, key) {
				httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func keyDigests(keys []string) [][sha256.Size]byte {
	digests := make([][sha256.Size]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}
	return digests
}

// keyAllowed compares digests in constant time and checks every entry.
func keyAllowed(digests [][sha256.Size]byte, key string) bool {
	sum := sha256.Sum256([]byte(key))
	ok := 0
	for i := range digests {
		ok |= subtle.ConstantTimeCompare(sum[:], digests[i][:])
	}
	return ok == 1
}
