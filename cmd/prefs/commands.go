package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/layout"
	"github.com/goliatone/go-prefs/pkg/activity"
	"github.com/goliatone/go-prefs/pkg/activity/usersink"
	"github.com/goliatone/go-prefs/pkg/metrics"
	"github.com/goliatone/go-prefs/pkg/session"
	"github.com/goliatone/go-prefs/pkg/store"
	"github.com/goliatone/go-prefs/schema/openapi"
	"github.com/goliatone/go-prefs/validate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

var errInvalidChanges = errors.New("some changes are not valid")

func newGroupsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List the groups of the layout and their keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			definition, err := layout.LoadFile(opts.layoutPath)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(definition.Groups))
			for _, group := range definition.Groups {
				keys := make([]string, 0, len(group.Items))
				for _, item := range group.Items {
					keys = append(keys, item.Key)
				}
				rows = append(rows, []string{group.ID, group.Label, strings.Join(keys, ", ")})
			}
			render(cmd.OutOrStdout(), rows)
			return nil
		},
	}
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show [group]",
		Short: "Show resolved values and where they come from",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			groups := e.definition.Groups
			if len(args) == 1 {
				group, ok := e.definition.Group(args[0])
				if !ok {
					return fmt.Errorf("unknown group %q", args[0])
				}
				groups = []layout.GroupDefinition{group}
			}
			var rows [][]string
			for _, group := range groups {
				for _, item := range group.Items {
					value, _ := e.resolution.Get(item.Key)
					rows = append(rows, []string{group.ID, item.Key, format(value), e.resolution.Sources[item.Key]})
				}
			}
			render(cmd.OutOrStdout(), rows)
			return nil
		},
	}
}

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the resolved value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if _, ok := e.definition.Item(args[0]); !ok {
				return fmt.Errorf("unknown key %q", args[0])
			}
			value, ok := e.resolution.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", store.ErrNotFound, args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), format(value))
			return nil
		},
	}
}

func newSchemaCmd(opts *options) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the layout as an OpenAPI document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			definition, err := layout.LoadFile(opts.layoutPath)
			if err != nil {
				return err
			}
			document, err := openapi.Generate(definition, openapi.WithInfo(title, "", ""))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(document)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	return cmd
}

type editFlags struct {
	dryRun  bool
	metrics bool
}

func newSetCmd(opts *options) *cobra.Command {
	flags := &editFlags{}
	cmd := &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Validate and save one or more values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, flags, args)
		},
	}
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate without saving")
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "Print session metrics after the command")
	return cmd
}

func newCheckCmd(opts *options) *cobra.Command {
	flags := &editFlags{dryRun: true}
	cmd := &cobra.Command{
		Use:   "check <key=value>...",
		Short: "Validate values without saving them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, flags, args)
		},
	}
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "Print session metrics after the command")
	return cmd
}

func newResetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <key>...",
		Short: "Remove saved values so the broader scope applies again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			for _, key := range args {
				if _, ok := e.definition.Item(key); !ok {
					return fmt.Errorf("unknown key %q", key)
				}
			}
			_, meta, err := store.Commit(ctx, e.store, e.ref, e.meta(), func(values prefs.Values) error {
				for _, key := range args {
					delete(values, key)
				}
				return nil
			})
			if err != nil {
				return err
			}
			opts.logger.InfoContext(ctx, "preferences reset", "ref", e.ref.String(), "keys", args, "snapshot", meta.SnapshotID)
			fmt.Fprintf(cmd.OutOrStdout(), "reset %s in %s\n", strings.Join(args, ", "), e.ref)
			return nil
		},
	}
}

func runEdit(cmd *cobra.Command, opts *options, flags *editFlags, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	edits, err := parseAssignments(args)
	if err != nil {
		return err
	}

	e, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	validator, err := validate.New(e.definition.Rules(),
		validate.WithEngine(opts.engine),
		validate.WithEvaluationLogger(validate.SlogLogger(opts.logger)),
	)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	observer, err := metrics.New(registry)
	if err != nil {
		return err
	}

	hooks := activity.Hooks{activity.LogHook{Logger: opts.logger}}
	if opts.auditLog != "" {
		sink, err := openAuditSink(opts.auditLog)
		if err != nil {
			return err
		}
		defer sink.Close()
		hooks = append(hooks, usersink.Hook{Sink: sink})
	}

	coordinator := prefs.New(
		prefs.WithBaseline(e.resolution),
		prefs.WithTransitionLogger(prefs.TransitionLoggerFunc(func(event prefs.TransitionLogEvent) {
			opts.logger.DebugContext(ctx, "transition", "event", event.Event, "key", event.Key, "outcome", event.Outcome, "can_save", event.CanSave)
		})),
	)
	s := session.New(coordinator, e.definition.Mapper(e.resolution),
		session.WithValidator(validator),
		session.WithStore(e.store, e.ref, e.meta()),
		session.WithEmitter(activity.NewEmitter(hooks, activity.Config{Enabled: true})),
		session.WithActor(session.Actor{ActorID: opts.user, UserID: opts.user}),
		session.WithLogger(opts.logger),
		session.WithObserver(observer),
	)

	for _, edit := range edits {
		item, ok := e.definition.Item(edit.key)
		if !ok {
			return fmt.Errorf("unknown key %q", edit.key)
		}
		value, err := layout.Coerce(prefs.ItemType(item.Type), edit.raw)
		if err != nil {
			return err
		}
		if group, ok := s.State().GroupOf(edit.key); ok {
			s.SelectGroup(ctx, group)
		}
		if _, err := s.Edit(ctx, edit.key, value); err != nil {
			return err
		}
	}

	state := s.State()
	printChanges(out, state)
	defer func() {
		if flags.metrics {
			_ = writeMetrics(out, registry)
		}
	}()

	if !state.CanSave() {
		return errInvalidChanges
	}
	if flags.dryRun || !state.HasChanges() {
		return nil
	}
	if _, err := s.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "saved to %s (snapshot %s)\n", e.ref, s.Meta().SnapshotID)
	return nil
}

type assignment struct {
	key string
	raw string
}

func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		out = append(out, assignment{key: key, raw: raw})
	}
	return out, nil
}

func printChanges(out io.Writer, state prefs.State) {
	changes := state.Changes()
	keys := make([]string, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		change := changes[key]
		rows = append(rows, []string{key, format(change.Value), string(change.State), change.Message()})
	}
	render(out, rows)
}

var (
	cellStyle    = lipgloss.NewStyle().PaddingRight(2)
	invalidStyle = cellStyle.Foreground(lipgloss.Color("9"))
)

// render writes rows as a borderless table. Cells reading "invalid" are
// highlighted when the output supports colour.
func render(out io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row >= 0 && row < len(rows) && col < len(rows[row]) && rows[row][col] == string(prefs.StateInvalid) {
				return invalidStyle
			}
			return cellStyle
		}).
		Rows(rows...)
	fmt.Fprintln(out, t.Render())
}

func writeMetrics(out io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(out, family); err != nil {
			return err
		}
	}
	return nil
}

func format(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		return v
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}
