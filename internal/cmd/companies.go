package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/bizdir/internal/api"
	"github.com/felixgeelhaar/bizdir/internal/store"
)

var companiesCmd = &cobra.Command{
	Use:     "companies",
	Aliases: []string{"company"},
	Short:   "Browse and manage directory listings",
}

var (
	listPage  int
	listLimit int
	listView  string
)

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies",
	Long: `List companies from one of the server-side collections. The --view flag
selects the collection: all, mine, premium, verified, top-rated, or blocked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := pageParams()
		s := current.companies

		var err error
		var viewKey string
		switch listView {
		case "", "all":
			err, viewKey = s.GetAll(cmd.Context(), params), store.ViewAll
		case "mine":
			err, viewKey = s.GetMine(cmd.Context(), params), store.ViewMine
		case "premium":
			err, viewKey = s.GetPremium(cmd.Context(), params), store.ViewPremium
		case "verified":
			err, viewKey = s.GetVerified(cmd.Context(), params), store.ViewVerified
		case "top-rated":
			err, viewKey = s.GetTopRated(cmd.Context(), params), store.ViewTopRated
		case "blocked":
			err, viewKey = s.GetBlocked(cmd.Context(), params), store.ViewBlocked
		default:
			return fmt.Errorf("unknown view %q", listView)
		}
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}

		view := s.ViewState(viewKey)
		fmt.Fprintln(cmd.OutOrStdout(), renderCompanies(s.Items(), view.Meta))
		return nil
	},
}

var companiesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search companies by free text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := current.companies
		if err := s.Search(cmd.Context(), args[0], pageParams()); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		view := s.ViewState(store.ViewSearch)
		fmt.Fprintln(cmd.OutOrStdout(), renderCompanies(s.Items(), view.Meta))
		return nil
	},
}

var (
	filterTypeID    string
	filterPremium   bool
	filterVerified  bool
	filterMinRating float64
)

var companiesFilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "List companies matching server-side filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := pageParams()
		if filterTypeID != "" {
			params["typeId"] = filterTypeID
		}
		if cmd.Flags().Changed("premium") {
			params["premium"] = strconv.FormatBool(filterPremium)
		}
		if cmd.Flags().Changed("verified") {
			params["verified"] = strconv.FormatBool(filterVerified)
		}
		if filterMinRating > 0 {
			params["minRating"] = strconv.FormatFloat(filterMinRating, 'f', -1, 64)
		}

		s := current.companies
		if err := s.FilterList(cmd.Context(), params); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		view := s.ViewState(api.FilterViewKey(params))
		fmt.Fprintln(cmd.OutOrStdout(), renderCompanies(s.Items(), view.Meta))
		return nil
	},
}

var getBySlug bool

var companiesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := current.companies
		var err error
		if getBySlug {
			err = s.GetBySlug(cmd.Context(), args[0])
		} else {
			err = s.GetByID(cmd.Context(), args[0])
		}
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprint(cmd.OutOrStdout(), renderCompany(*s.Selected()))
		return nil
	},
}

var companyInput store.CompanyInput

var companiesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if companyInput.Slug != "" {
			available, err := current.companies.CheckSlug(cmd.Context(), companyInput.Slug, "")
			if err == nil && !available {
				return fmt.Errorf("slug %q is taken", companyInput.Slug)
			}
		}
		c, err := current.companies.Create(cmd.Context(), companyInput)
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", c.Name, c.ID)
		return nil
	},
}

var companiesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current.companies.Update(cmd.Context(), args[0], companyInput)
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", c.Name)
		return nil
	},
}

var companiesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.companies.Remove(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
		return nil
	},
}

var companiesTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the company-type taxonomy",
	RunE: func(cmd *cobra.Command, args []string) error {
		types, err := current.companies.GetTypes(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		for _, t := range types {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.ID, t.Label)
		}
		return nil
	},
}

func adminToggleCmd(use, short, action string, call func(cmd *cobra.Command, id string, value bool) (*store.Company, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id> <true|false>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", args[1])
			}
			c, err := call(cmd, args[0], value)
			if err != nil {
				return fmt.Errorf("%s", renderError(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", action, c.Name)
			return nil
		},
	}
}

var companiesRecalcCmd = &cobra.Command{
	Use:   "recalculate-stats <id>",
	Short: "Recompute a company's rating aggregates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current.companies.RecalculateStats(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %.1f (%d reviews)\n", c.Name, c.Rating, c.ReviewCount)
		return nil
	},
}

func pageParams() api.Params {
	params := api.Params{}
	if listPage > 0 {
		params["page"] = strconv.Itoa(listPage)
	}
	if listLimit > 0 {
		params["limit"] = strconv.Itoa(listLimit)
	}
	return params
}

func init() {
	for _, c := range []*cobra.Command{companiesListCmd, companiesSearchCmd, companiesFilterCmd} {
		c.Flags().IntVar(&listPage, "page", 0, "page number")
		c.Flags().IntVar(&listLimit, "limit", 0, "page size")
	}
	companiesListCmd.Flags().StringVar(&listView, "view", "all", "collection to list (all, mine, premium, verified, top-rated, blocked)")

	companiesFilterCmd.Flags().StringVar(&filterTypeID, "type", "", "company type id")
	companiesFilterCmd.Flags().BoolVar(&filterPremium, "premium", false, "premium listings only")
	companiesFilterCmd.Flags().BoolVar(&filterVerified, "verified", false, "verified listings only")
	companiesFilterCmd.Flags().Float64Var(&filterMinRating, "min-rating", 0, "minimum rating")

	companiesGetCmd.Flags().BoolVar(&getBySlug, "slug", false, "treat the argument as a slug")

	for _, c := range []*cobra.Command{companiesCreateCmd, companiesUpdateCmd} {
		c.Flags().StringVar(&companyInput.Name, "name", "", "company name")
		c.Flags().StringVar(&companyInput.Slug, "slug", "", "url slug")
		c.Flags().StringVar(&companyInput.TypeID, "type", "", "company type id")
		c.Flags().StringVar(&companyInput.Description, "description", "", "description")
	}

	companiesCmd.AddCommand(
		companiesListCmd, companiesSearchCmd, companiesFilterCmd,
		companiesGetCmd, companiesCreateCmd, companiesUpdateCmd, companiesDeleteCmd,
		companiesTypesCmd, companiesRecalcCmd,
		adminToggleCmd("set-blocked", "Block or unblock a listing", "block flag set", func(cmd *cobra.Command, id string, v bool) (*store.Company, error) {
			return current.companies.SetBlocked(cmd.Context(), id, v)
		}),
		adminToggleCmd("set-premium", "Set or clear the premium flag", "premium flag set", func(cmd *cobra.Command, id string, v bool) (*store.Company, error) {
			return current.companies.SetPremium(cmd.Context(), id, v)
		}),
		adminToggleCmd("set-verified", "Set or clear verification", "verification set", func(cmd *cobra.Command, id string, v bool) (*store.Company, error) {
			return current.companies.SetVerified(cmd.Context(), id, v)
		}),
	)
	rootCmd.AddCommand(companiesCmd)
}
