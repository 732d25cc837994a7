// auth resolves request credentials into caller identities.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/taules/taules/internal/api/models/common"
	"github.com/taules/taules/internal/config"
	"github.com/taules/taules/internal/domain/caller"
)

const headerAuthorization = "Authorization"

// Realm names this server in basic-auth challenges.
const Realm = "taules"

// Authenticator turns the Authorization header into a caller identity. A
// request without credentials passes through as anonymous and table
// policies decide what anonymous callers may do; a request with bad
// credentials is rejected outright.
type Authenticator struct {
	jwtConf    *config.JWT
	basicUsers map[string]string // name -> bcrypt hash
}

func NewAuthenticator(conf *config.Auth) *Authenticator {
	authenticator := Authenticator{basicUsers: make(map[string]string)}
	if conf != nil {
		authenticator.jwtConf = conf.JWT
		for _, user := range conf.BasicAuth {
			authenticator.basicUsers[user.Name] = user.PasswordHash
		}
	}
	return &authenticator
}

// Challenge is the WWW-Authenticate value this server sends with 401
// responses. With no auth configured at all it still names Bearer, because
// a 401 without a challenge is not a real 401.
func (a *Authenticator) Challenge() string {
	schemes := make([]string, 0, 2)
	if a.jwtConf != nil {
		schemes = append(schemes, "Bearer")
	}
	if len(a.basicUsers) > 0 {
		schemes = append(schemes, fmt.Sprintf("Basic realm=%q", Realm))
	}
	if len(schemes) == 0 {
		schemes = append(schemes, "Bearer")
	}
	return strings.Join(schemes, ", ")
}

// Middleware authenticates the request and stashes the caller identity on
// the request context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.Identify(c.Request.Header.Get(headerAuthorization))
		if err != nil {
			c.Header("WWW-Authenticate", a.Challenge())
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.Body{Message: err.Error()})
			return
		}
		c.Request = c.Request.WithContext(caller.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

// Identify resolves an Authorization header value. An empty header yields
// the anonymous identity.
func (a *Authenticator) Identify(header string) (caller.Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return caller.Anonymous(), nil
	}
	scheme, credentials, _ := strings.Cut(header, " ")
	credentials = strings.TrimSpace(credentials)
	switch {
	case strings.EqualFold(scheme, "Bearer"):
		return a.identifyBearer(credentials)
	case strings.EqualFold(scheme, "Basic"):
		return a.identifyBasic(credentials)
	default:
		return caller.Identity{}, fmt.Errorf("unsupported authorization scheme [%s]", scheme)
	}
}

func (a *Authenticator) identifyBearer(tokenString string) (caller.Identity, error) {
	if a.jwtConf == nil {
		return caller.Identity{}, errors.New("bearer tokens are not enabled")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if a.jwtConf.Issuer != nil {
		opts = append(opts, jwt.WithIssuer(*a.jwtConf.Issuer))
	}
	if a.jwtConf.Audience != nil {
		opts = append(opts, jwt.WithAudience(*a.jwtConf.Audience))
	}
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing algorithm [%v]", token.Header["alg"])
		}
		return []byte(a.jwtConf.Secret), nil
	}, opts...)
	if err != nil {
		return caller.Identity{}, fmt.Errorf("invalid bearer token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return caller.Identity{}, errors.New("invalid bearer token: unusable claims")
	}
	subject, _ := claims["sub"].(string)
	if subject == "" {
		return caller.Identity{}, errors.New("invalid bearer token: no subject")
	}
	name := subject
	if claimedName, ok := claims["name"].(string); ok && claimedName != "" {
		name = claimedName
	}
	return caller.Identity{
		ID:            caller.Id(subject),
		Name:          name,
		Authenticated: true,
		Claims:        claims,
	}, nil
}

func (a *Authenticator) identifyBasic(credentials string) (caller.Identity, error) {
	decoded, err := base64.StdEncoding.DecodeString(credentials)
	if err != nil {
		return caller.Identity{}, errors.New("malformed basic auth credentials")
	}
	name, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return caller.Identity{}, errors.New("malformed basic auth credentials")
	}
	hash, known := a.basicUsers[name]
	if !known {
		return caller.Identity{}, errors.New("unknown user or wrong password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return caller.Identity{}, errors.New("unknown user or wrong password")
	}
	return caller.Identity{
		ID:            caller.Id(name),
		Name:          name,
		Authenticated: true,
	}, nil
}
