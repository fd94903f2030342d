package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/websecurity/authz"
	"github.com/upb/websecurity/repositories"
	"golang.org/x/crypto/bcrypt"
)

// CredentialChecker verifies a username and password pair
type CredentialChecker interface {
	CheckCredentials(ctx context.Context, username, password string) (bool, error)
}

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func passwordMatches(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DictionaryChecker checks credentials against the users of a DictionaryPolicy
type DictionaryChecker struct {
	policy *authz.DictionaryPolicy
}

// NewDictionaryChecker creates a new DictionaryChecker
func NewDictionaryChecker(policy *authz.DictionaryPolicy) *DictionaryChecker {
	return &DictionaryChecker{policy: policy}
}

// CheckCredentials implements CredentialChecker
func (c *DictionaryChecker) CheckCredentials(ctx context.Context, username, password string) (bool, error) {
	user, ok := c.policy.Lookup(username)
	if !ok {
		return false, nil
	}
	return passwordMatches(user.PasswordHash, password), nil
}

// RepositoryChecker checks credentials against stored users.
// Disabled users never pass.
type RepositoryChecker struct {
	users repositories.UserRepository
}

// NewRepositoryChecker creates a new RepositoryChecker
func NewRepositoryChecker(users repositories.UserRepository) *RepositoryChecker {
	return &RepositoryChecker{users: users}
}

// CheckCredentials implements CredentialChecker
func (c *RepositoryChecker) CheckCredentials(ctx context.Context, username, password string) (bool, error) {
	user, err := c.users.GetActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load user: %w", err)
	}
	return passwordMatches(user.PasswordHash, password), nil
}
