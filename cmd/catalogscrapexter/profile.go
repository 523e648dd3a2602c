// cmd/catalogscrapexter/profile.go
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/CatalogScrapexter/internal/config"
)

// NewProfileCmd creates the profile command group.
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage crawl profiles",
	}
	cmd.AddCommand(newProfileInitCmd())
	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileListCmd())
	return cmd
}

func newProfileInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a profile",
		Long: `Init writes a profile with all six keys. Selectors left empty produce
"Unavailable" for that column. The name may also be a path to a .json file.

Examples:
  catalogscrapexter profile init shop \
    --url https://shop.example.com/catalog \
    --link-pattern "a.product-link" \
    --title h1 --image .gallery --description .description --specs table.specs`,
		Args: cobra.ExactArgs(1),
		RunE: runProfileInitCmd,
	}

	cmd.Flags().String("url", "", "Seed catalog URL")
	cmd.Flags().String("link-pattern", "", "CSS selector of product links")
	cmd.Flags().String("title", "", "CSS selector of the product title")
	cmd.Flags().String("image", "", "CSS selector of the element holding product images")
	cmd.Flags().String("description", "", "CSS selector of the product description")
	cmd.Flags().String("specs", "", "CSS selector of the specifications")
	cmd.Flags().BoolP("force", "f", false, "Overwrite an existing profile")

	return cmd
}

func runProfileInitCmd(cmd *cobra.Command, args []string) error {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	cfg := config.CrawlConfig{
		SeedURL:             get("url"),
		LinkSelector:        get("link-pattern"),
		TitleSelector:       get("title"),
		ImageSelector:       get("image"),
		DescriptionSelector: get("description"),
		SpecsSelector:       get("specs"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store := profileStore(cmd)
	path := store.Path(args[0])
	if force, _ := cmd.Flags().GetBool("force"); !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("profile already exists: %s (use -f to overwrite)", path)
		}
	}

	written, err := store.Save(args[0], config.NewProfile(cfg))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created profile: %s\n", written)
	return nil
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profileStore(cmd).Load(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(p)
		},
	}
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles in the profile directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := profileStore(cmd)
			names, err := store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No profiles in %s\n", store.Dir())
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
