package gateway

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
)

// generateToken returns a signed JWT identifying a user and session.
func generateToken(user, session, secret string) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["user"] = user
	claims["session"] = session
	claims["iat"] = time.Now().Unix()

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("error with JWT signing: %v", err)
	}
	return tokenString, nil
}

// ParseToken validates a signed JWT against the shared secret and returns the
// user claim.  Used by servers fronting the gateway wire format.
func ParseToken(tokenString, secret string) (user string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("error signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("error parsing JWT: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("failed authorization")
	}
	userClaim, found := claims["user"]
	if !found {
		return "", fmt.Errorf("token carries no user claim")
	}
	user, ok = userClaim.(string)
	if !ok {
		return "", fmt.Errorf("user %v is not a simple string", userClaim)
	}
	return user, nil
}

// BearerToken extracts the JWT from an Authorization request header.
func BearerToken(r *http.Request) (string, error) {
	reqToken := r.Header.Get("Authorization")
	if len(reqToken) == 0 {
		return "", fmt.Errorf("JWT required via Authorization in request header")
	}
	splitToken := strings.Split(reqToken, "Bearer")
	if len(splitToken) != 2 {
		return "", fmt.Errorf("bearer not in proper format")
	}
	token := strings.TrimSpace(splitToken[1])
	if len(token) == 0 {
		return "", fmt.Errorf("requests require JWT authentication")
	}
	return token, nil
}

func (g *Gateway) authorize(r *http.Request) {
	r.Header.Set("Authorization", "Bearer "+g.token)
}

func readFileTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
