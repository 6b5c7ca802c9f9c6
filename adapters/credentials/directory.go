// Package credentials provides a static user directory for development and tests.
// Production deployments plug their own user service in behind ports.CredentialVerifier.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/layer-3/tollgate/core"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// User is a directory entry. PasswordHash is a bcrypt hash.
type User struct {
	Subject      string `yaml:"subject"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"password_hash"`
}

type directoryFile struct {
	Users []User `yaml:"users"`
}

// Directory verifies logins against a fixed set of users
type Directory struct {
	byName  map[string]User
	byEmail map[string]User
	// compared against when the identifier is unknown so both paths cost one bcrypt check
	dummyHash []byte
}

// NewDirectory builds a directory from users. Names and emails must be unique.
func NewDirectory(users []User) (*Directory, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("tollgate-dummy-password"), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare directory: %w", err)
	}

	d := &Directory{
		byName:    make(map[string]User, len(users)),
		byEmail:   make(map[string]User, len(users)),
		dummyHash: dummy,
	}
	for _, u := range users {
		if u.Subject == "" || u.PasswordHash == "" {
			return nil, fmt.Errorf("user %q: subject and password_hash are required", u.Name)
		}
		if u.Name != "" {
			if _, dup := d.byName[u.Name]; dup {
				return nil, fmt.Errorf("duplicate user name %q", u.Name)
			}
			d.byName[u.Name] = u
		}
		if u.Email != "" {
			email := strings.ToLower(u.Email)
			if _, dup := d.byEmail[email]; dup {
				return nil, fmt.Errorf("duplicate user email %q", u.Email)
			}
			d.byEmail[email] = u
		}
	}
	return d, nil
}

// LoadDirectory reads a YAML user directory from path
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read user directory: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse user directory: %w", err)
	}

	return NewDirectory(file.Users)
}

// VerifyCredentials matches identifier against user names, then emails, and checks the password
func (d *Directory) VerifyCredentials(ctx context.Context, identifier, password string) (core.Principal, error) {
	u, ok := d.byName[identifier]
	if !ok {
		u, ok = d.byEmail[strings.ToLower(identifier)]
	}
	if !ok {
		_ = bcrypt.CompareHashAndPassword(d.dummyHash, []byte(password))
		return core.Principal{}, core.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return core.Principal{}, core.ErrInvalidCredentials
		}
		return core.Principal{}, fmt.Errorf("failed to compare password: %w", err)
	}

	return core.Principal{
		Subject: u.Subject,
		Claims: core.Claims{
			Name:  u.Name,
			Email: u.Email,
			Role:  u.Role,
		},
	}, nil
}

// HashPassword returns a bcrypt hash suitable for a directory entry
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
