// relayctl runs trusted operator tasks directly against the configured store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spec-kit/relay-desk/internal/auth"
	"github.com/spec-kit/relay-desk/internal/bootstrap"
	"github.com/spec-kit/relay-desk/internal/config"
	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/repository"
	"github.com/spec-kit/relay-desk/internal/service"
)

const usage = `usage: relayctl <command> [flags]

commands:
  create-code --code CODE --reward N   create a reward code
  issue-token --user ID                sign a console token for a Director
  hash-password [--cost N]             hash a console password read from the terminal
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(out, usage)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch args[0] {
	case "create-code":
		return createCode(cfg, args[1:], out)
	case "issue-token":
		return issueToken(cfg, args[1:], out)
	case "hash-password":
		return hashPassword(cfg, args[1:], out)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func createCode(cfg *config.Config, args []string, out io.Writer) error {
	var code string
	var reward int64
	flags := pflag.NewFlagSet("create-code", pflag.ContinueOnError)
	flags.StringVar(&code, "code", "", "code users will type")
	flags.Int64Var(&reward, "reward", 0, "balance credited on redemption")
	if err := flags.Parse(args); err != nil {
		return err
	}

	code = domain.NormalizeCode(code)
	if err := service.ValidateRewardCode(code, reward); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := bootstrap.OpenStore(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Rewards.CreateCode(ctx, &domain.RewardCode{Code: code, Reward: reward}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("code %s already exists", code)
		}
		return err
	}
	fmt.Fprintf(out, "created %s (reward %d)\n", code, reward)
	return nil
}

func issueToken(cfg *config.Config, args []string, out io.Writer) error {
	var userID int64
	flags := pflag.NewFlagSet("issue-token", pflag.ContinueOnError)
	flags.Int64Var(&userID, "user", 0, "Director user id")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if userID <= 0 {
		return errors.New("--user is required")
	}

	ctx := context.Background()
	store, err := bootstrap.OpenStore(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: store.Users})
	_, meta, token, err := authService.IssueOperatorToken(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\nexpires %s\n", token, meta.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func hashPassword(cfg *config.Config, args []string, out io.Writer) error {
	var cost int
	flags := pflag.NewFlagSet("hash-password", pflag.ContinueOnError)
	flags.IntVar(&cost, "cost", cfg.Auth.BcryptCost, "bcrypt cost")
	if err := flags.Parse(args); err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("no terminal available for the password prompt")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if strings.TrimSpace(string(password)) == "" {
		return errors.New("empty password")
	}

	hash, err := auth.HashPassword(string(password), cost)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "AUTH_OPERATOR_PASSWORD_HASH=%s\n", hash)
	return nil
}
