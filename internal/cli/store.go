package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowgrid/flowgrid/pkg/diagram"
	"github.com/flowgrid/flowgrid/pkg/errors"
	"github.com/flowgrid/flowgrid/pkg/store"
)

// storeOpts holds the connection flags shared by the store subcommands.
type storeOpts struct {
	mongoURI string
	database string
}

// storeCommand creates the store command for managing named diagrams.
func (c *CLI) storeCommand() *cobra.Command {
	opts := storeOpts{
		mongoURI: "mongodb://localhost:27017",
		database: appName,
	}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage named diagrams in the diagram store",
	}

	cmd.PersistentFlags().StringVar(&opts.mongoURI, "mongo", opts.mongoURI, "MongoDB URI")
	cmd.PersistentFlags().StringVar(&opts.database, "db", opts.database, "MongoDB database name")

	cmd.AddCommand(c.storePutCommand(&opts))
	cmd.AddCommand(c.storeGetCommand(&opts))
	cmd.AddCommand(c.storeListCommand(&opts))
	cmd.AddCommand(c.storeDeleteCommand(&opts))

	return cmd
}

// withStore opens the configured store, runs fn, and closes it again.
func (c *CLI) withStore(ctx context.Context, opts *storeOpts, fn func(store.Store) error) error {
	st, err := store.NewMongoStore(ctx, opts.mongoURI, opts.database)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			c.Logger.Warn("closing store", "err", err)
		}
	}()
	return fn(st)
}

func (c *CLI) storePutCommand(opts *storeOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "put <name> <file>",
		Short: "Store a diagram under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			if err := errors.ValidateDiagramName(name); err != nil {
				return err
			}
			d, err := diagram.ReadFile(path)
			if err != nil {
				return err
			}
			return c.withStore(cmd.Context(), opts, func(st store.Store) error {
				if err := st.Put(cmd.Context(), name, d); err != nil {
					return err
				}
				printSuccess("Stored %s", name)
				printStats(len(d.Elements), len(d.Connections), false)
				return nil
			})
		},
	}
}

func (c *CLI) storeGetCommand(opts *storeOpts) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Fetch a stored diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return c.withStore(cmd.Context(), opts, func(st store.Store) error {
				rec, err := st.Get(cmd.Context(), name)
				if err != nil {
					return err
				}
				out, err := openOutput(output)
				if err != nil {
					return err
				}
				defer out.Close()
				return diagram.Write(rec.Diagram, out)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func (c *CLI) storeListCommand(opts *storeOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored diagram names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), opts, func(st store.Store) error {
				names, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(names) == 0 {
					printInfo("Store is empty")
					return nil
				}
				for _, name := range names {
					fmt.Println(name)
				}
				return nil
			})
		},
	}
}

func (c *CLI) storeDeleteCommand(opts *storeOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return c.withStore(cmd.Context(), opts, func(st store.Store) error {
				if err := st.Delete(cmd.Context(), name); err != nil {
					return err
				}
				printSuccess("Deleted %s", name)
				return nil
			})
		},
	}
}
