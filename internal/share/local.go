package share

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const (
	grantIssuer     = "vidshrink"
	grantPermission = "read"
	keyBytes        = 32
)

type grantClaims struct {
	jwt.Claims
	Permission string   `json:"perm"`
	Files      []string `json:"files"`
}

// Local issues signed read grants for files on this machine.
type Local struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewLocal returns a grant issuer signing with key.
func NewLocal(key []byte, ttl time.Duration) *Local {
	return &Local{key: key, ttl: ttl, now: time.Now}
}

func (l *Local) Name() string { return "local" }

// Share issues one grant covering every file.
func (l *Local) Share(_ context.Context, files []File) ([]Link, error) {
	paths := make([]string, 0, len(files))
	for _, file := range files {
		abs, err := filepath.Abs(file.Path)
		if err != nil {
			return nil, err
		}
		paths = append(paths, abs)
	}
	token, expires, err := l.Issue(paths)
	if err != nil {
		return nil, err
	}
	return []Link{{Paths: paths, URL: token, ExpiresAt: expires}}, nil
}

// Issue signs a read grant for paths.
func (l *Local) Issue(paths []string) (string, time.Time, error) {
	if len(paths) == 0 {
		return "", time.Time{}, errors.New("grant requires at least one file")
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: l.key}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create grant signer: %w", err)
	}
	now := l.now()
	expires := now.Add(l.ttl)
	claims := grantClaims{
		Claims: jwt.Claims{
			Issuer:   grantIssuer,
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(expires),
		},
		Permission: grantPermission,
		Files:      paths,
	}
	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign grant: %w", err)
	}
	return token, expires.UTC(), nil
}

// Open verifies a grant and returns the files it names that are still
// readable.
func (l *Local) Open(token string) ([]string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrGrantInvalid
	}
	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGrantInvalid, err)
	}
	var claims grantClaims
	if err := parsed.Claims(l.key, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGrantInvalid, err)
	}
	if err := claims.ValidateWithLeeway(jwt.Expected{Issuer: grantIssuer, Time: l.now()}, 0); err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrGrantExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrGrantInvalid, err)
	}
	if claims.Permission != grantPermission {
		return nil, fmt.Errorf("%w: unsupported permission %q", ErrGrantInvalid, claims.Permission)
	}

	readable := make([]string, 0, len(claims.Files))
	for _, path := range claims.Files {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		_ = f.Close()
		readable = append(readable, path)
	}
	return readable, nil
}

// LoadOrCreateKey reads the grant signing key at path, creating a random
// one on first use.
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, decodeErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decodeErr != nil || len(key) < keyBytes {
			return nil, fmt.Errorf("share key %s is malformed", path)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read share key: %w", err)
	}

	key := make([]byte, keyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate share key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create share key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write share key: %w", err)
	}
	return key, nil
}

var _ Backend = (*Local)(nil)
