package festctl

import (
	"context"
	"flag"

	"github.com/google/subcommands"
)

type boothCmd struct {
	opts   *Options
	create string
}

func (*boothCmd) Name() string     { return "booth" }
func (*boothCmd) Synopsis() string { return "list booths or create one" }
func (*boothCmd) Usage() string {
	return `festctl booth [-create <name>]

  Without flags lists booths with their sales totals.
`
}

func (p *boothCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.create, "create", "", "Name of a booth to create")
}

func (p *boothCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	c := p.opts.client()

	if p.create != "" {
		b, err := c.CreateBooth(ctx, p.create)
		if err != nil {
			return fail(err)
		}
		p.opts.printf("created booth %s\n", b.Name)
		return subcommands.ExitSuccess
	}

	booths, err := c.Booths(ctx)
	if err != nil {
		return fail(err)
	}
	for _, b := range booths {
		p.opts.printf("%-20s %12s active=%t\n", b.Name, b.TotalSales.StringFixed(2), b.IsActive)
	}
	return subcommands.ExitSuccess
}
