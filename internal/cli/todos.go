package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/todos/internal/client"
	"github.com/roach88/todos/internal/todo"
)

// ClientOptions carries state shared by the client commands.
type ClientOptions struct {
	*RootOptions

	// HTTPClient overrides the transport (for testing). If nil, the client
	// package default is used.
	HTTPClient *http.Client
}

func (o *ClientOptions) client() *client.Client {
	return client.New(o.Server, o.HTTPClient)
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClientOptions{RootOptions: rootOpts}
	var complete bool

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Create a todo",
		Example: `  todos add "buy milk"
  todos add "file taxes" --complete --server http://todos.internal:8000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *client.Client, out *OutputFormatter) error {
				created, err := c.Create(ctx, todo.Input{Text: args[0], Complete: complete})
				if err != nil {
					return err
				}
				return out.Render(created, "Created "+formatTodo(created))
			})
		},
	}

	cmd.Flags().BoolVar(&complete, "complete", false, "mark the new todo complete")
	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClientOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:           "list",
		Short:         "List all todos",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, opts, func(ctx context.Context, c *client.Client, out *OutputFormatter) error {
				todos, err := c.List(ctx)
				if err != nil {
					return err
				}
				if out.Format == "json" {
					return out.Success(todos)
				}
				writeTodoList(out.Writer, todos)
				return nil
			})
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClientOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one todo",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, opts, func(ctx context.Context, c *client.Client, out *OutputFormatter) error {
				got, err := c.Get(ctx, id)
				if err != nil {
					return notFoundAs(err, id)
				}
				return out.Render(got, formatTodo(got))
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClientOptions{RootOptions: rootOpts}
	var (
		text     string
		complete bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a todo's text and completion",
		Long: `Replace a todo's text and completion. Both are required: the API
has no partial updates.`,
		Example:       `  todos update 3 --text "buy oat milk" --complete=true`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, opts, func(ctx context.Context, c *client.Client, out *OutputFormatter) error {
				updated, err := c.Update(ctx, id, todo.Input{Text: text, Complete: complete})
				if err != nil {
					return notFoundAs(err, id)
				}
				return out.Render(updated, "Updated "+formatTodo(updated))
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "new text (required)")
	cmd.Flags().BoolVar(&complete, "complete", false, "new completion state (required)")
	_ = cmd.MarkFlagRequired("text")
	_ = cmd.MarkFlagRequired("complete")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClientOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a todo",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, opts, func(ctx context.Context, c *client.Client, out *OutputFormatter) error {
				msg, err := c.Delete(ctx, id)
				if err != nil {
					return notFoundAs(err, id)
				}
				return out.Render(map[string]any{"id": id, "message": msg}, msg)
			})
		},
	}
}

// withClient runs fn and maps its error to an exit code: a missing todo or
// a rejected request is ExitFailure, anything else (server unreachable,
// undecodable response) is ExitCommandError. In JSON mode the error is also
// written to stdout as a CLIResponse.
func withClient(cmd *cobra.Command, opts *ClientOptions, fn func(context.Context, *client.Client, *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := newFormatter(cmd, opts.RootOptions)
	out.VerboseLog("server: %s", opts.Server)

	err := fn(ctx, opts.client(), out)
	if err == nil {
		return nil
	}

	var (
		code    string
		message string
		details any
		exit    *ExitError
	)
	var apiErr *client.APIError
	var nf *notFoundError
	switch {
	case errors.As(err, &nf):
		code, message, details = "E_NOT_FOUND", "Todo not found", map[string]int64{"id": nf.id}
		exit = NewExitError(ExitFailure, fmt.Sprintf("todo %d not found", nf.id))
	case errors.As(err, &apiErr):
		code, message = "E_API", apiErr.Detail
		details = map[string]any{"status": apiErr.Status, "request_id": apiErr.RequestID}
		exit = WrapExitError(ExitFailure, "request rejected", err)
	default:
		code, message = "E_TRANSPORT", err.Error()
		exit = WrapExitError(ExitCommandError, "request failed", err)
	}

	if out.Format == "json" {
		if werr := out.Error(code, message, details); werr != nil {
			return werr
		}
	}
	return exit
}

type notFoundError struct {
	id int64
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("todo %d not found", e.id)
}

func (e *notFoundError) Unwrap() error {
	return client.ErrNotFound
}

// notFoundAs attaches the requested id to a client.ErrNotFound.
func notFoundAs(err error, id int64) error {
	if errors.Is(err, client.ErrNotFound) {
		return &notFoundError{id: id}
	}
	return err
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q: must be an integer", arg))
	}
	return id, nil
}

func formatTodo(t todo.Todo) string {
	mark := " "
	if t.Complete {
		mark = "x"
	}
	return fmt.Sprintf("[%s] %d  %s", mark, t.ID, t.Text)
}

func writeTodoList(w io.Writer, todos []todo.Todo) {
	if len(todos) == 0 {
		fmt.Fprintln(w, "No todos.")
		return
	}
	done := 0
	for _, t := range todos {
		fmt.Fprintln(w, formatTodo(t))
		if t.Complete {
			done++
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 20))
	fmt.Fprintf(w, "%d todos, %d complete\n", len(todos), done)
}
