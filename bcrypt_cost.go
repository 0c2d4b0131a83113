//go:build !race

package auth

import "golang.org/x/crypto/bcrypt"

const passwordHashCost = bcrypt.DefaultCost
