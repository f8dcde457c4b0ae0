// Файл: internal/api/middleware.go
package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/dispatch"
)

// AuthHeader - заголовок с подписанными данными пользователя.
const AuthHeader = "X-Dispatch-Auth"

// ActorContextKey - ключ для сохранения актора в контексте запроса.
var ActorContextKey = &contextKey{"Actor"}

type contextKey struct {
	name string
}

// ActorResolver загружает актора по id из подписанного токена.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID int64) (dispatch.Actor, error)
}

// ActorFromContext достаёт актора, сохранённый AuthMiddleware.
func ActorFromContext(ctx context.Context) (dispatch.Actor, bool) {
	a, ok := ctx.Value(ActorContextKey).(dispatch.Actor)
	return a, ok
}

// AuthMiddleware проверяет заголовок X-Dispatch-Auth и кладёт актора в контекст.
// Роль берётся из хранилища, а не из токена.
func AuthMiddleware(secret string, maxAge time.Duration, resolver ActorResolver, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get(AuthHeader)
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "缺少认证信息", "", "")
				return
			}

			userData, err := validateAuthToken(authHeader, secret, maxAge, time.Now())
			if err != nil {
				logger.Warnf("AuthMiddleware: невалидный токен: %v", err)
				writeJSONError(w, http.StatusUnauthorized, "认证信息无效", "", "")
				return
			}

			actor, err := resolver.ResolveActor(r.Context(), userData.ID)
			if err != nil {
				logger.WithField("user_id", userData.ID).Warnf("AuthMiddleware: пользователь не найден или заблокирован: %v", err)
				if apperr.IsKind(err, apperr.KindPermissionDenied) {
					writeAppError(w, err)
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "用户不存在", "", "")
				return
			}

			ctx := context.WithValue(r.Context(), ActorContextKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RoleMiddleware пропускает только перечисленные роли.
func RoleMiddleware(roles ...constants.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusForbidden, "缺少用户信息", "", "")
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeAppError(w, apperr.PermissionDenied(fmt.Sprintf("角色%s无权执行此操作", actor.Role)))
		})
	}
}

// authUserData - пользователь внутри токена.
type authUserData struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// dataCheckString - отсортированные пары k=v без hash, через перевод строки.
func dataCheckString(q url.Values) string {
	var pairs []string
	for k, v := range q {
		if k != "hash" {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, v[0]))
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\n")
}

func signature(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// validateAuthToken проверяет подпись и возраст токена.
func validateAuthToken(token, secret string, maxAge time.Duration, now time.Time) (authUserData, error) {
	var userData authUserData

	q, err := url.ParseQuery(token)
	if err != nil {
		return userData, fmt.Errorf("failed to parse token: %w", err)
	}

	hash := q.Get("hash")
	if hash == "" {
		return userData, fmt.Errorf("hash is not present in token")
	}
	if !hmac.Equal([]byte(signature(dataCheckString(q), secret)), []byte(hash)) {
		return userData, fmt.Errorf("hash mismatch")
	}

	authDate, err := strconv.ParseInt(q.Get("auth_date"), 10, 64)
	if err != nil {
		return userData, fmt.Errorf("auth_date is missing or invalid")
	}
	if maxAge > 0 && now.Sub(time.Unix(authDate, 0)) > maxAge {
		return userData, fmt.Errorf("token expired")
	}

	userJSON := q.Get("user")
	if userJSON == "" {
		return userData, fmt.Errorf("user data is not present in token")
	}
	if err := json.Unmarshal([]byte(userJSON), &userData); err != nil {
		return userData, fmt.Errorf("failed to unmarshal user data: %w", err)
	}
	if userData.ID == 0 {
		return userData, fmt.Errorf("user id is empty")
	}
	return userData, nil
}

// SignAuthToken выпускает значение для заголовка X-Dispatch-Auth.
func SignAuthToken(actor dispatch.Actor, secret string, issuedAt time.Time) (string, error) {
	user, err := json.Marshal(authUserData{ID: actor.ID, Name: actor.Name, Role: string(actor.Role)})
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("user", string(user))
	q.Set("auth_date", strconv.FormatInt(issuedAt.Unix(), 10))
	q.Set("hash", signature(dataCheckString(q), secret))
	return q.Encode(), nil
}
