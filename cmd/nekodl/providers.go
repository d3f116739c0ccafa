package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"nekodl/pkg/config"
	"nekodl/pkg/gateway"
	"nekodl/pkg/logger"
	"nekodl/pkg/provider/all"
	"nekodl/pkg/ui"
)

// providersCmd lists the registered providers
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List available providers",
	Long: `List every registered provider.

Providers marked as needing extras only work with an --extras file that
configures them (a subreddit, booru tags, artwork or gallery ids).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(ui.Output(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tEXTRAS\tDESCRIPTION")
		for _, e := range registry.Entries() {
			extras := "optional"
			if e.RequiresExtras {
				extras = "required"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, extras, e.Description)
		}
		_ = w.Flush()
	},
}

var categoriesProvider string

// categoriesCmd prints the categories of one provider
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the categories of a provider",
	Long:  `List the categories of a provider with their image counts when the provider reports them. Same as '--category check'.`,
	Example: `  nekodl categories --provider waifu.im
  nekodl categories --provider waifu.pics --nsfw`,
	Args: cobra.NoArgs,
	RunE: runCategories,
}

var categoriesNSFW bool

func init() {
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(categoriesCmd)

	categoriesCmd.Flags().StringVar(&categoriesProvider, "provider", all.DefaultProvider, "provider to query")
	categoriesCmd.Flags().StringVar(&extrasPath, "extras", "", "provider extras file (.json or .toml)")
	categoriesCmd.Flags().BoolVar(&categoriesNSFW, "nsfw", false, "list NSFW categories where the provider separates them")
}

func runCategories(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	extras, err := config.LoadExtras(extrasPath, categoriesProvider)
	if err != nil {
		return err
	}
	extras["nsfw"] = categoriesNSFW

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &session{gw: gateway.NewClient(cfg.Gateway, logger.GetLogger())}
	defer s.close()

	s.provider, err = registry.New(categoriesProvider, providerDeps(cfg, s.gw), extras)
	if err != nil {
		return err
	}

	categories, err := s.provider.FetchCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch categories: %w", err)
	}
	ui.PrintCategories(ui.Output(), categories)
	return nil
}
