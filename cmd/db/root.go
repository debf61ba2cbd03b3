package db

import (
	"github.com/ValentinKolb/xdb/cmd/util"
	"github.com/ValentinKolb/xdb/lib/common"
	"github.com/ValentinKolb/xdb/lib/store/xstore"
	"github.com/spf13/cobra"
)

var (
	objStore *xstore.Store
	conf     *common.StoreConfig

	// DBCommands represents the store command group
	DBCommands = &cobra.Command{
		Use:   "db",
		Short: "Inspect and modify a store file",
		Long: `Inspect and modify a store file. The configuration can be set via command line
flags or environment variables. The format of the environment variables is XDB_<flag>
(e.g. XDB_PATH=data/sessions, XDB_PRIMARY_KEY=sessionId)`,
		PersistentPreRunE: setupStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add store flags
	util.SetupStoreFlags(DBCommands, "")
	DBCommands.PersistentFlags().String("primary-key", "", util.WrapString("Field to index as unique primary key (empty for none)"))

	// Add subcommands
	DBCommands.AddCommand(infoCmd)
	DBCommands.AddCommand(dumpCmd)
	DBCommands.AddCommand(createCmd)
	DBCommands.AddCommand(getCmd)
	DBCommands.AddCommand(getKeyCmd)
	DBCommands.AddCommand(findCmd)
	DBCommands.AddCommand(setCmd)
	DBCommands.AddCommand(setKeyCmd)
	DBCommands.AddCommand(rmCmd)
	DBCommands.AddCommand(rmKeyCmd)
	DBCommands.AddCommand(metricsCmd)
}

// setupStore opens the store configured by flags and environment
func setupStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf = util.GetStoreConfig()

	var err error
	objStore, err = util.OpenStore(cmd, conf)
	return err
}
