package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lovenav/internal/logger"
	"github.com/lovenav/internal/model"
	"github.com/lovenav/internal/repository"
	"github.com/lovenav/internal/storage"
	"github.com/lovenav/internal/token"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too short")
	// ErrSessionNotFound — сессии нет (истекла, отозвана и вычищена, либо чужая).
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionRevoked — сессия есть, но отозвана; refresh по ней запрещён.
	ErrSessionRevoked = errors.New("session revoked")
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const minPasswordLen = 8

// UserStore — то, что auth-сервису нужно от репозитория пользователей.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// TokenPair — ответ login/refresh. Refresh-токен в JSON не попадает:
// клиент получает его только в HttpOnly-cookie.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthService — выпуск и ротация токенов, учёт сессий в Redis.
type AuthService struct {
	users      UserStore
	store      storage.SessionLedgerStore
	codec      *token.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration
	adminEmail string
}

func NewAuthService(users UserStore, store storage.SessionLedgerStore, codec *token.Codec, accessTTL, refreshTTL time.Duration, adminEmail string) *AuthService {
	return &AuthService{
		users:      users,
		store:      store,
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		adminEmail: adminEmail,
	}
}

// sessionTTL — TTL сессионных ключей: живут не меньше самого долгого токена.
func (s *AuthService) sessionTTL() time.Duration {
	if s.refreshTTL > s.accessTTL {
		return s.refreshTTL
	}
	return s.accessTTL
}

func (s *AuthService) roleFor(u *model.User) string {
	if s.adminEmail != "" && strings.EqualFold(u.Email, s.adminEmail) {
		return "admin"
	}
	return "user"
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

type SignupRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Nickname    string   `json:"nickname"`
	Preferences []string `json:"preferences"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*model.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if !emailRegexp.MatchString(email) {
		return nil, ErrInvalidCredentials
	}
	if len(req.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		Nickname:     strings.TrimSpace(req.Nickname),
		Preferences:  req.Preferences,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if u.Nickname == "" {
		u.Nickname = strings.SplitN(email, "@", 2)[0]
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	logger.Infof("user registered: %s", u.ID)
	return u, nil
}

// Login проверяет учётные данные и открывает новую сессию: пара токенов,
// запись в Redis и refresh-журнал.
func (s *AuthService) Login(ctx context.Context, email, password string, ip, userAgent *string) (*TokenPair, *model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !CheckPassword(password, u.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	pair, accessJTI, refreshJTI, err := s.mintPair(u, sessionID)
	if err != nil {
		return nil, nil, err
	}

	now := nowISO()
	sess := &model.Session{
		SessionID:  sessionID,
		UserID:     u.ID,
		Status:     model.SessionStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastSeen:   now,
		AccessJTI:  accessJTI,
		RefreshJTI: refreshJTI,
		IP:         ip,
		UserAgent:  userAgent,
	}
	if err := s.store.SetSession(ctx, sess, s.sessionTTL()); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}
	if err := s.store.RecordRefresh(ctx, refreshJTI, sessionID, s.refreshTTL); err != nil {
		return nil, nil, fmt.Errorf("record refresh: %w", err)
	}
	logger.Infof("login ok: user=%s session=%s", u.ID, sessionID)
	return pair, u, nil
}

func (s *AuthService) mintPair(u *model.User, sessionID string) (*TokenPair, string, string, error) {
	access, accessJTI, err := s.codec.Mint(u.ID, token.TypeAccess, s.accessTTL, map[string]string{
		"role":       s.roleFor(u),
		"session_id": sessionID,
	})
	if err != nil {
		return nil, "", "", err
	}
	refresh, refreshJTI, err := s.codec.Mint(u.ID, token.TypeRefresh, s.refreshTTL, map[string]string{
		"session_id": sessionID,
	})
	if err != nil {
		return nil, "", "", err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, accessJTI, refreshJTI, nil
}

// Refresh ротирует пару токенов. Порядок проверок:
// подпись/тип -> сессия существует и активна -> jti совпадает с последним
// выданным -> атомарное изъятие из журнала (GETDEL закрывает гонку
// параллельных refresh: выигрывает ровно один).
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, ip, userAgent *string) (*TokenPair, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != token.TypeRefresh || claims.SessionID == "" {
		return nil, token.ErrInvalidToken
	}

	sess, err := s.store.GetSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Status != model.SessionStatusActive {
		return nil, ErrSessionRevoked
	}
	if sess.RefreshJTI != claims.JTI {
		// Старый refresh после ротации: возможная кража токена.
		logger.Errorf("stale refresh jti for session %s", sess.SessionID)
		return nil, token.ErrInvalidToken
	}
	gotSID, err := s.store.ConsumeRefresh(ctx, claims.JTI)
	if err != nil {
		return nil, err
	}
	if gotSID != claims.SessionID {
		return nil, token.ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	pair, accessJTI, refreshJTI, err := s.mintPair(u, sess.SessionID)
	if err != nil {
		return nil, err
	}
	now := nowISO()
	sess.AccessJTI = accessJTI
	sess.RefreshJTI = refreshJTI
	sess.UpdatedAt = now
	sess.LastSeen = now
	applyClientMeta(sess, ip, userAgent)
	if err := s.store.SetSession(ctx, sess, s.sessionTTL()); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if err := s.store.RecordRefresh(ctx, refreshJTI, sess.SessionID, s.refreshTTL); err != nil {
		return nil, fmt.Errorf("record refresh: %w", err)
	}
	return pair, nil
}

// applyClientMeta перезаписывает IP и User-Agent сессии, если клиент их
// прислал. Сессия, переехавшая на другой адрес, отражает последний.
func applyClientMeta(sess *model.Session, ip, userAgent *string) {
	if ip != nil {
		sess.IP = ip
	}
	if userAgent != nil {
		sess.UserAgent = userAgent
	}
}

// Authenticate проверяет access-токен и возвращает пользователя с сессией.
// Access, выпущенный до последней ротации, отклоняется по jti.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string, ip, userAgent *string) (*model.User, *model.Session, error) {
	claims, err := s.codec.Decode(accessToken)
	if err != nil {
		return nil, nil, err
	}
	if claims.Type != token.TypeAccess || claims.SessionID == "" {
		return nil, nil, token.ErrInvalidToken
	}
	sess, err := s.store.GetSession(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess == nil {
		return nil, nil, ErrSessionNotFound
	}
	if sess.Status != model.SessionStatusActive {
		return nil, nil, ErrSessionRevoked
	}
	if sess.AccessJTI != claims.JTI {
		return nil, nil, token.ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}
	// last_seen, IP и User-Agent обновляются по живому трафику; ошибка
	// записи не валит запрос.
	sess.LastSeen = nowISO()
	applyClientMeta(sess, ip, userAgent)
	if err := s.store.SetSession(ctx, sess, s.sessionTTL()); err != nil {
		logger.Errorf("touch session %s: %v", sess.SessionID, err)
	}
	return u, sess, nil
}

// Logout отзывает сессию по любому из двух токенов: access из заголовка
// или refresh из cookie. Журнальная запись refresh-токена удаляется даже
// если сессия уже вычищена. Всегда успешен: повторный logout, мусорный
// или истёкший токен дают тот же результат для клиента.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) {
	sessionID := ""
	if accessToken != "" {
		if claims, err := s.codec.Decode(accessToken); err == nil && claims.Type == token.TypeAccess {
			sessionID = claims.SessionID
		}
	}
	if refreshToken != "" {
		if claims, err := s.codec.Decode(refreshToken); err == nil && claims.Type == token.TypeRefresh {
			if sessionID == "" {
				sessionID = claims.SessionID
			}
			if err := s.store.RevokeRefresh(ctx, claims.JTI); err != nil {
				logger.Errorf("revoke refresh %s: %v", claims.JTI, err)
			}
		}
	}
	if sessionID == "" {
		return
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil || sess == nil {
		return
	}
	if sess.Status == model.SessionStatusActive {
		s.revoke(ctx, sess, "logout")
	}
}

func (s *AuthService) revoke(ctx context.Context, sess *model.Session, reason string) {
	if sess.RefreshJTI != "" {
		if err := s.store.RevokeRefresh(ctx, sess.RefreshJTI); err != nil {
			logger.Errorf("revoke refresh %s: %v", sess.RefreshJTI, err)
		}
	}
	now := nowISO()
	sess.Status = model.SessionStatusRevoked
	sess.RevokedAt = now
	sess.RevokedReason = reason
	sess.UpdatedAt = now
	if err := s.store.SetSession(ctx, sess, s.sessionTTL()); err != nil {
		logger.Errorf("mark session %s revoked: %v", sess.SessionID, err)
	}
	logger.Infof("session revoked: %s (%s)", sess.SessionID, reason)
}

// ListSessions возвращает сессии пользователя, помечая текущую.
// Протухшие id вычищаются из индекса по пути.
func (s *AuthService) ListSessions(ctx context.Context, userID, currentSessionID string) ([]model.SessionInfo, error) {
	ids, err := s.store.SessionIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.SessionInfo, 0, len(ids))
	for _, id := range ids {
		sess, err := s.store.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			if err := s.store.RemoveSessionID(ctx, userID, id); err != nil {
				logger.Errorf("prune session index %s/%s: %v", userID, id, err)
			}
			continue
		}
		out = append(out, model.SessionInfo{
			SessionID: sess.SessionID,
			Status:    sess.Status,
			CreatedAt: sess.CreatedAt,
			LastSeen:  sess.LastSeen,
			IP:        sess.IP,
			UserAgent: sess.UserAgent,
			IsCurrent: sess.SessionID == currentSessionID,
		})
	}
	// Свежие сессии первыми. RFC3339 в UTC сортируется лексикографически.
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen != out[j].LastSeen {
			return out[i].LastSeen > out[j].LastSeen
		}
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out, nil
}

// RevokeSession отзывает одну сессию пользователя (экран "мои устройства").
// Чужая сессия неотличима от несуществующей.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil || sess.UserID != userID {
		return ErrSessionNotFound
	}
	if sess.Status == model.SessionStatusActive {
		s.revoke(ctx, sess, "user_revoked")
	}
	return nil
}
