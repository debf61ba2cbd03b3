package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/xdb/cmd/util"
	"github.com/ValentinKolb/xdb/lib/session"
	"github.com/spf13/cobra"
)

var (
	sessions   *session.Manager
	sessionTTL time.Duration
	keepTokens string

	// SessionCommands represents the session command group
	SessionCommands = &cobra.Command{
		Use:               "session",
		Short:             "Manage sessions stored in a session store",
		PersistentPreRunE: setupSessions,
	}

	createCmd = &cobra.Command{
		Use:   "create [refId]",
		Short: "Creates a session for refId and prints its token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := sessions.Create(args[0], sessionTTL)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [token]",
		Short: "Prints the refId of a valid session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refID, ok, err := sessions.Get(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no valid session")
			}
			fmt.Println(refID)
			return nil
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [token]",
		Short: "Deletes a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := sessions.Delete(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("token=%s, deleted=%t\n", args[0], ok)
			return nil
		},
	}
	deleteAllCmd = &cobra.Command{
		Use:   "delete-all [refId]",
		Short: "Deletes all sessions of refId",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				n   int
				err error
			)
			if keepTokens != "" {
				n, err = sessions.DeleteAllExcept(args[0], strings.Split(keepTokens, ",")...)
			} else {
				n, err = sessions.DeleteAll(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d sessions\n", n)
			return nil
		},
	}
	gcCmd = &cobra.Command{
		Use:   "gc",
		Short: "Deletes all expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// expired sessions are already removed when the store is opened
			n, err := sessions.DeleteExpired()
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d sessions\n", n)
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add store flags
	util.SetupStoreFlags(SessionCommands, "data/sessions")

	// Add subcommands
	SessionCommands.AddCommand(createCmd)
	SessionCommands.AddCommand(getCmd)
	SessionCommands.AddCommand(deleteCmd)
	SessionCommands.AddCommand(deleteAllCmd)
	SessionCommands.AddCommand(gcCmd)

	createCmd.Flags().DurationVar(&sessionTTL, "ttl", 0, util.WrapString("Lifetime of the session (0 for a session that never expires)"))
	deleteAllCmd.Flags().StringVar(&keepTokens, "except", "", util.WrapString("Comma-separated list of tokens to keep"))
}

// setupSessions opens the session store
func setupSessions(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf := util.GetStoreConfig()
	opts, err := util.StoreOptions(conf)
	if err != nil {
		return err
	}

	sessions, err = session.Open(conf.Path, opts, nil)
	if err != nil {
		return err
	}
	if err := util.Register(cmd, "sessions", sessions.Store()); err != nil {
		_ = sessions.Close()
		return err
	}
	return nil
}
