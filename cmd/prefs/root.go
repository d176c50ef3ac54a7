package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-prefs/internal/logging"
	"github.com/goliatone/go-prefs/layout"
	"github.com/goliatone/go-prefs/pkg/store"
	redisstore "github.com/goliatone/go-prefs/pkg/store/redis"
	"github.com/goliatone/go-prefs/validate"
	"github.com/spf13/cobra"
)

// options holds the persistent flags shared by every command.
type options struct {
	layoutPath string
	storeRoot  string
	redisAddr  string
	domain     string
	user       string
	engine     string
	logLevel   string
	auditLog   string

	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "prefs",
		Short:         "Inspect and edit layered preferences",
		Long:          `prefs loads a preference layout, resolves the saved values for a user and applies validated edits.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logging.NewWithWriter(stderr, level)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.layoutPath, "layout", "l", "", "Layout document (yaml, json or toml)")
	flags.StringVar(&opts.storeRoot, "store", store.DefaultFileRoot, "Directory of the file store")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", "Use the Redis store at this address instead of files")
	flags.StringVar(&opts.domain, "domain", "", "Preference domain (defaults to the layout file name)")
	flags.StringVarP(&opts.user, "user", "u", "", "User id; without it the system scope is edited")
	flags.StringVar(&opts.engine, "engine", validate.EngineExpr, "Rule engine: expr, cel or js")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flags.StringVar(&opts.auditLog, "audit-log", "", "Append saved and reverted changes to this file as JSON lines")
	_ = root.MarkPersistentFlagRequired("layout")

	root.AddCommand(
		newGroupsCmd(opts),
		newShowCmd(opts),
		newGetCmd(opts),
		newSetCmd(opts),
		newCheckCmd(opts),
		newResetCmd(opts),
		newSchemaCmd(opts),
	)
	return root
}

// env is everything a command needs after the flags are resolved.
type env struct {
	definition *layout.Definition
	store      store.Store
	ref        store.Ref
	refs       []store.Ref
	resolution store.Resolution
	close      func() error
}

// meta returns the metadata of the snapshot commands write to.
func (e *env) meta() store.Meta {
	id, err := e.ref.Identifier()
	if err != nil {
		return store.Meta{}
	}
	return e.resolution.Metas[id]
}

func (o *options) open(ctx context.Context) (*env, error) {
	definition, err := layout.LoadFile(o.layoutPath)
	if err != nil {
		return nil, err
	}
	domain := o.domain
	if domain == "" {
		domain = strings.TrimSuffix(filepath.Base(o.layoutPath), filepath.Ext(o.layoutPath))
	}

	e := &env{definition: definition, close: func() error { return nil }}
	if o.redisAddr != "" {
		rs := redisstore.New(o.redisAddr, "", 0)
		e.store = rs
		e.close = rs.Close
	} else {
		fs, err := store.NewFileStore(o.storeRoot)
		if err != nil {
			return nil, err
		}
		e.store = fs
	}

	e.ref = store.System(domain)
	e.refs = []store.Ref{e.ref}
	if o.user != "" {
		e.ref = store.User(domain, o.user)
		e.refs = append(e.refs, e.ref)
	}

	e.resolution, err = store.Resolver{Store: e.store}.Resolve(ctx, definition.Defaults(), e.refs...)
	if err != nil {
		_ = e.close()
		return nil, fmt.Errorf("resolve %s: %w", e.ref, err)
	}
	o.logger.DebugContext(ctx, "preferences resolved", "ref", e.ref.String(), "keys", len(e.resolution.Values))
	return e, nil
}
