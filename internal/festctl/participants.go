package festctl

import (
	"context"
	"errors"
	"flag"

	"github.com/google/subcommands"
)

var errCardRequired = errors.New("-card is required")

type tokenCmd struct {
	opts *Options
	name string
}

func (*tokenCmd) Name() string     { return "token" }
func (*tokenCmd) Synopsis() string { return "issue an operator token" }
func (*tokenCmd) Usage() string {
	return `festctl token -name <operator>

  Prints a token to pass as -token or FESTCTL_TOKEN to the other commands.
`
}

func (p *tokenCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.name, "name", "", "Operator name recorded in transactions")
}

func (p *tokenCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.name == "" {
		return fail(errors.New("-name is required"))
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	token, err := p.opts.client().IssueToken(ctx, p.name)
	if err != nil {
		return fail(err)
	}
	p.opts.printf("%s\n", token)
	return subcommands.ExitSuccess
}

type registerCmd struct {
	opts    *Options
	card    string
	name    string
	balance string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "register a participant wristband" }
func (*registerCmd) Usage() string {
	return `festctl register -card <number> [-name <name>] [-balance <amount>]
`
}

func (p *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.card, "card", "", "Card or wristband number")
	f.StringVar(&p.name, "name", "", "Participant name")
	f.StringVar(&p.balance, "balance", "0", "Initial balance")
}

func (p *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.card == "" {
		return fail(errCardRequired)
	}
	balance, err := parseAmount(p.balance)
	if err != nil {
		return fail(err)
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	participant, err := p.opts.client().RegisterParticipant(ctx, p.card, p.name, balance)
	if err != nil {
		return fail(err)
	}
	p.opts.printf("registered %s card=%s balance=%s\n", participant.ID, participant.CardNumber, participant.Balance)
	return subcommands.ExitSuccess
}

type topUpCmd struct {
	opts        *Options
	card        string
	amount      string
	description string
}

func (*topUpCmd) Name() string     { return "topup" }
func (*topUpCmd) Synopsis() string { return "add money to a card" }
func (*topUpCmd) Usage() string {
	return `festctl topup -card <number> -amount <amount> [-desc <text>]
`
}

func (p *topUpCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.card, "card", "", "Card or wristband number")
	f.StringVar(&p.amount, "amount", "", "Amount to add")
	f.StringVar(&p.description, "desc", "", "Description")
}

func (p *topUpCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.card == "" {
		return fail(errCardRequired)
	}
	amount, err := parseAmount(p.amount)
	if err != nil {
		return fail(err)
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	t, err := p.opts.client().TopUp(ctx, p.card, amount, p.description)
	if err != nil {
		return fail(err)
	}
	p.opts.printf("credit %s %s\n", t.ID, t.Amount)
	return subcommands.ExitSuccess
}

type sellCmd struct {
	opts        *Options
	card        string
	amount      string
	booth       string
	description string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "charge a card at a booth" }
func (*sellCmd) Usage() string {
	return `festctl sell -card <number> -amount <amount> [-booth <name>] [-desc <text>]

  Fails without changing the balance when the card has not enough money.
`
}

func (p *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.card, "card", "", "Card or wristband number")
	f.StringVar(&p.amount, "amount", "", "Amount to charge")
	f.StringVar(&p.booth, "booth", "", "Booth name")
	f.StringVar(&p.description, "desc", "", "Description")
}

func (p *sellCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.card == "" {
		return fail(errCardRequired)
	}
	amount, err := parseAmount(p.amount)
	if err != nil {
		return fail(err)
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	t, err := p.opts.client().Sell(ctx, p.card, amount, p.booth, p.description)
	if err != nil {
		return fail(err)
	}
	p.opts.printf("debit %s %s\n", t.ID, t.Amount)
	return subcommands.ExitSuccess
}

type balanceCmd struct {
	opts    *Options
	card    string
	history bool
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "show the balance of a card" }
func (*balanceCmd) Usage() string {
	return `festctl balance -card <number> [-history]
`
}

func (p *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.card, "card", "", "Card or wristband number")
	f.BoolVar(&p.history, "history", false, "Also list the transactions of the card")
}

func (p *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.card == "" {
		return fail(errCardRequired)
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	c := p.opts.client()
	participant, err := c.LookupCard(ctx, p.card)
	if err != nil {
		return fail(err)
	}
	p.opts.printf("%s %s balance=%s active=%t\n",
		participant.CardNumber, participant.Name, participant.Balance, participant.IsActive)
	if !p.history {
		return subcommands.ExitSuccess
	}

	list, err := c.Transactions(ctx, participant.ID)
	if err != nil {
		return fail(err)
	}
	for _, t := range list {
		p.opts.printf("%s %-6s %10s %s %s\n",
			t.Timestamp.Format("2006-01-02 15:04:05"), t.Type, t.Signed().StringFixed(2), t.Booth, t.Description)
	}
	return subcommands.ExitSuccess
}
