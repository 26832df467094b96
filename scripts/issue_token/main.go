package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"campus-eats/internal/middleware"
	"campus-eats/internal/model"
)

// Prints a bearer token signed with JWT_SECRET for local testing, e.g.
//
//	go run ./scripts/issue_token -sub kitchen-1 -role staff
func main() {
	sub := flag.String("sub", "student-1", "user id")
	role := flag.String("role", string(model.RoleStudent), "student, staff or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	actor := model.Actor{ID: *sub, Role: model.Role(*role)}
	if !actor.Role.IsValid() {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(1)
	}

	token, err := middleware.IssueToken([]byte(secret), actor, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
