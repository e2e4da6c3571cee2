// identity/identity.go
package identity

import (
	"fmt"
	"strings"

	"github.com/Feral-Mailbox/PokeWars/gameerr"
	"github.com/Feral-Mailbox/PokeWars/models"
	"github.com/Feral-Mailbox/PokeWars/persistence"
)

// Identity is a resolved, stable user identity.
type Identity struct {
	ID       uint
	Username string
	Email    string
	Avatar   string
	Elo      int
}

// Provider authenticates requests to identities.
type Provider struct {
	users persistence.UserStore
}

func NewProvider(users persistence.UserStore) *Provider {
	return &Provider{users: users}
}

func identityOf(u *models.User) *Identity {
	return &Identity{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
		Elo:      u.Elo,
	}
}

// Register creates an account. Username/email collisions surface as Conflict.
func (p *Provider) Register(username, email, password string) (*Identity, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: username, email and a password of at least 8 characters are required", gameerr.ErrValidation)
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:       username,
		Email:          email,
		HashedPassword: hashed,
		Avatar:         "default.png",
		Elo:            1000,
	}
	if err := p.users.CreateUser(user); err != nil {
		if err == persistence.ErrDuplicate {
			return nil, fmt.Errorf("%w: username or email already taken", gameerr.ErrConflict)
		}
		return nil, err
	}
	return identityOf(user), nil
}

// Authenticate verifies a username/password credential. A missing user and a
// wrong password are indistinguishable to the caller.
func (p *Provider) Authenticate(username, password string) (*Identity, error) {
	user, err := p.users.UserByName(username)
	if err != nil {
		if err == persistence.ErrRecordNotFound {
			// Burn the same hashing cost as a real verification so the
			// response does not reveal whether the username exists.
			_, _ = VerifyPassword(dummyHash, password)
			return nil, gameerr.ErrUnauthorized
		}
		return nil, err
	}

	ok, err := VerifyPassword(user.HashedPassword, password)
	if err != nil || !ok {
		return nil, gameerr.ErrUnauthorized
	}
	return identityOf(user), nil
}

// Resolve maps a previously issued user id back to an identity.
func (p *Provider) Resolve(userID uint) (*Identity, error) {
	user, err := p.users.UserByID(userID)
	if err != nil {
		if err == persistence.ErrRecordNotFound {
			return nil, gameerr.ErrUnauthorized
		}
		return nil, err
	}
	return identityOf(user), nil
}

// dummyHash is a valid argon2id hash of a random throwaway string, used to
// equalize timing when the username does not exist.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=4$AAAAAAAAAAAAAAAAAAAAAA$qL1s9dcmVRm0g6PcTZJaPXYXE4zH0mu2IMBrb0JPJUk"
