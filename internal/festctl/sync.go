package festctl

import (
	"context"
	"errors"
	"flag"

	"github.com/fsdevblog/festwallet/internal/transport/api"
	"github.com/google/subcommands"
)

var errAddrRequired = errors.New("-addr is required")

func (o *Options) printStatus(st *api.SyncStatusResponse) {
	o.printf("state=%s role=%s peers=%d", st.State, st.Role, st.PeerCount)
	if st.Address != "" {
		o.printf(" address=%s", st.Address)
	}
	if st.Error != "" {
		o.printf(" error=%q", st.Error)
	}
	o.printf("\n")
}

type syncStatusCmd struct {
	opts *Options
}

func (*syncStatusCmd) Name() string             { return "sync-status" }
func (*syncStatusCmd) Synopsis() string         { return "show the sync session state" }
func (*syncStatusCmd) Usage() string            { return "festctl sync-status\n" }
func (*syncStatusCmd) SetFlags(_ *flag.FlagSet) {}

func (p *syncStatusCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	st, err := p.opts.client().SyncStatus(ctx)
	if err != nil {
		return fail(err)
	}
	p.opts.printStatus(st)
	return subcommands.ExitSuccess
}

type syncServeCmd struct {
	opts *Options
	addr string
}

func (*syncServeCmd) Name() string     { return "sync-serve" }
func (*syncServeCmd) Synopsis() string { return "start accepting sync clients" }
func (*syncServeCmd) Usage() string    { return "festctl sync-serve -addr <host:port>\n" }

func (p *syncServeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.addr, "addr", "", "Listen address")
}

func (p *syncServeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.addr == "" {
		return fail(errAddrRequired)
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	st, err := p.opts.client().SyncServe(ctx, p.addr)
	if err != nil {
		return fail(err)
	}
	p.opts.printStatus(st)
	return subcommands.ExitSuccess
}

type syncConnectCmd struct {
	opts *Options
	addr string
}

func (*syncConnectCmd) Name() string     { return "sync-connect" }
func (*syncConnectCmd) Synopsis() string { return "connect to a sync server" }
func (*syncConnectCmd) Usage() string    { return "festctl sync-connect -addr <host:port>\n" }

func (p *syncConnectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.addr, "addr", "", "Server address")
}

func (p *syncConnectCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.addr == "" {
		return fail(errAddrRequired)
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	st, err := p.opts.client().SyncConnect(ctx, p.addr)
	if err != nil {
		return fail(err)
	}
	p.opts.printStatus(st)
	return subcommands.ExitSuccess
}

type syncDisconnectCmd struct {
	opts *Options
}

func (*syncDisconnectCmd) Name() string             { return "sync-disconnect" }
func (*syncDisconnectCmd) Synopsis() string         { return "stop the sync session" }
func (*syncDisconnectCmd) Usage() string            { return "festctl sync-disconnect\n" }
func (*syncDisconnectCmd) SetFlags(_ *flag.FlagSet) {}

func (p *syncDisconnectCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	st, err := p.opts.client().SyncDisconnect(ctx)
	if err != nil {
		return fail(err)
	}
	p.opts.printStatus(st)
	return subcommands.ExitSuccess
}
