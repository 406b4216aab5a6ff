// Package festctl команды консольной утилиты оператора. Каждая команда это один запрос к API узла.
package festctl

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsdevblog/festwallet/internal/client"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

const requestTimeout = 30 * time.Second

// Options общие для всех команд флаги.
type Options struct {
	Server string
	Token  string
	Out    io.Writer
}

// SetFlags регистрирует общие флаги. Значения по умолчанию берутся из FESTCTL_SERVER и FESTCTL_TOKEN.
func (o *Options) SetFlags(f *flag.FlagSet) {
	server := os.Getenv("FESTCTL_SERVER")
	if server == "" {
		server = "http://localhost:8080"
	}
	f.StringVar(&o.Server, "server", server, "Node API base URL")
	f.StringVar(&o.Token, "token", os.Getenv("FESTCTL_TOKEN"), "Operator token")
}

func (o *Options) client() *client.Client {
	c := client.New(o.Server)
	if o.Token != "" {
		c.SetToken(o.Token)
	}
	return c
}

func (o *Options) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.Out, format, args...)
}

// fail печатает ошибку команды в stderr.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return amount, nil
}

// Register регистрирует все команды в c.
func Register(c *subcommands.Commander, opts *Options) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")

	c.Register(&tokenCmd{opts: opts}, "operator")

	c.Register(&registerCmd{opts: opts}, "participants")
	c.Register(&topUpCmd{opts: opts}, "participants")
	c.Register(&sellCmd{opts: opts}, "participants")
	c.Register(&balanceCmd{opts: opts}, "participants")

	c.Register(&boothCmd{opts: opts}, "booths")

	c.Register(&syncStatusCmd{opts: opts}, "sync")
	c.Register(&syncServeCmd{opts: opts}, "sync")
	c.Register(&syncConnectCmd{opts: opts}, "sync")
	c.Register(&syncDisconnectCmd{opts: opts}, "sync")
}
