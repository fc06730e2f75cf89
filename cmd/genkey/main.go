package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/admin"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/webhook"
)

type operatorEnv struct {
	AdminJWTSecret string `envconfig:"ADMIN_JWT_SECRET" required:"true"`
	TokenIssuer    string `envconfig:"TOKEN_ISSUER" default:"partnerhub-gateway"`
}

const usage = `usage:
  genkey secret [sandbox|production]       client secret with its bcrypt hash and prefix
  genkey webhook                           webhook signing secret
  genkey operator -subject NAME [-role operator|system] [-ttl 24h]
                                           internal API token (reads ADMIN_JWT_SECRET)`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "secret":
		err = clientSecret(os.Args[2:])
	case "webhook":
		err = webhookSecret()
	case "operator":
		err = operatorToken(os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func clientSecret(args []string) error {
	env := domain.EnvSandbox
	if len(args) > 0 {
		env = args[0]
	}

	secret, hash, prefix, err := domain.GenerateClientSecret(env)
	if err != nil {
		return err
	}
	fmt.Printf("SECRET=%s\nHASH=%s\nPREFIX=%s\n", secret, hash, prefix)
	return nil
}

func webhookSecret() error {
	secret, err := webhook.GenerateSecret()
	if err != nil {
		return err
	}
	fmt.Printf("SECRET=%s\n", secret)
	return nil
}

func operatorToken(args []string) error {
	fs := flag.NewFlagSet("operator", flag.ExitOnError)
	subject := fs.String("subject", "", "token subject (operator name or system id)")
	role := fs.String("role", admin.RoleOperator, "operator or system")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_ = godotenv.Load()
	var env operatorEnv
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	jwtService := admin.NewJWTService(env.AdminJWTSecret, env.TokenIssuer+"-internal", *ttl)
	token, err := jwtService.GenerateToken(*subject, *role)
	if err != nil {
		return err
	}
	fmt.Printf("TOKEN=%s\n", token)
	return nil
}
