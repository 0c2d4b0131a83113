//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// Race-enabled test runs pay a heavy instrumentation tax; use the cheapest
// cost so the suite stays fast.
const passwordHashCost = bcrypt.MinCost
