package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"fastjob.dev/devtools/internal/auth"
	"fastjob.dev/devtools/internal/config"
	"fastjob.dev/devtools/internal/obs"
	"fastjob.dev/devtools/internal/store/pg"
)

var version = "0.1.0"

// demoUsers are the seeded accounts of a local fastjob database.
var demoUsers = []struct {
	label string
	req   auth.IssueRequest
}{
	{"Employer", auth.IssueRequest{UserID: 8, Role: "User"}},   // employer_demo
	{"Freelancer", auth.IssueRequest{UserID: 9, Role: "User"}}, // freelancer_demo
	{"Admin", auth.IssueRequest{UserID: 10, Role: "Admin"}},    // admin_demo
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	obs.Setup(cfg.LogLevel)
	obs.InitBuildInfo("gentoken", version)
	log := obs.Logger()

	var (
		userID    = flag.Int64("user", 0, "issue a single token for this user id")
		role      = flag.String("role", auth.DefaultRole, "role claim")
		email     = flag.String("email", "", "email claim (null when empty)")
		lang      = flag.String("lang", auth.DefaultLang, "lang claim")
		dsn       = flag.String("dsn", cfg.DSN, "PostgreSQL DSN of the fastjob database")
		list      = flag.Bool("list", false, "list recorded tokens of -user")
		revokeAll = flag.Bool("revoke-all", false, "delete every recorded token of -user")
		decode    = flag.String("decode", "", "verify a token and print its claims")
	)
	flag.Parse()

	if err := cfg.RequireSecret(); err != nil {
		log.Error().Err(err).Msg("gentoken")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	issuer, err := auth.NewIssuer(cfg.Secret, pg.OneShot{DSN: *dsn})
	if err != nil {
		log.Error().Err(err).Msg("create issuer")
		return 1
	}

	switch {
	case *decode != "":
		return decodeToken(issuer, *decode)
	case *list || *revokeAll:
		if *userID <= 0 {
			fmt.Fprintln(os.Stderr, "-list and -revoke-all require -user")
			return 1
		}
		return manageTokens(ctx, *dsn, *userID, *revokeAll)
	case *userID > 0:
		token, err := issuer.Issue(ctx, auth.IssueRequest{UserID: *userID, Role: *role, Email: *email, Lang: *lang})
		if err != nil {
			log.Error().Err(err).Msg("issue token")
			return 1
		}
		fmt.Println(token)
		return 0
	}

	tokens := make([]string, len(demoUsers))
	for i, u := range demoUsers {
		tokens[i], err = issuer.Issue(ctx, u.req)
		if err != nil {
			log.Error().Err(err).Int64("user_id", u.req.UserID).Msg("issue token")
			return 1
		}
	}
	fmt.Println("Generated JWT tokens:")
	for i, u := range demoUsers {
		fmt.Printf("%s (ID %d): %s\n", u.label, u.req.UserID, tokens[i])
	}
	return 0
}

func decodeToken(issuer *auth.Issuer, token string) int {
	claims, err := issuer.Parse(token)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	out, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func manageTokens(ctx context.Context, dsn string, userID int64, revoke bool) int {
	log := obs.Logger()
	store, err := pg.Open(dsn)
	if err != nil {
		log.Error().Err(err).Msg("open db")
		return 1
	}
	defer store.Close()

	if revoke {
		n, err := store.InvalidateAll(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("revoke tokens")
			return 1
		}
		fmt.Printf("Revoked %d token(s) of user %d\n", n, userID)
		return 0
	}

	tokens, err := store.List(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("list tokens")
		return 1
	}
	fmt.Printf("%d token(s) for user %d\n", len(tokens), userID)
	for _, tok := range tokens {
		fmt.Printf("%s  %s  %s  %s\n", tok.Published.Format(time.RFC3339), tok.IP, tok.UserAgent, tok.Token)
	}
	return 0
}
