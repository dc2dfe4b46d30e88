package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/bizdir/internal/store"
)

var contactsCmd = &cobra.Command{
	Use:     "contacts",
	Aliases: []string{"inquiries"},
	Short:   "Browse and manage contact inquiries",
}

var contactsMine bool

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inquiries",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := current.contacts
		viewKey := store.ViewAll
		var err error
		if contactsMine {
			viewKey = store.ViewMine
			err = s.GetMine(cmd.Context(), pageParams())
		} else {
			err = s.GetAll(cmd.Context(), pageParams())
		}
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		view := s.ViewState(viewKey)
		fmt.Fprintln(cmd.OutOrStdout(), renderContacts(s.Items(), view.Meta))
		return nil
	},
}

var contactsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one inquiry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := current.contacts
		if err := s.GetByID(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		c := s.Selected()
		fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]\nfrom %s <%s> about company %s\n\n%s\n",
			c.Subject, c.Status, c.Name, c.Email, c.CompanyID, c.Message)
		return nil
	},
}

var contactInput store.ContactInput

var contactsSendCmd = &cobra.Command{
	Use:   "send <company-id>",
	Short: "Send an inquiry to a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contactInput.CompanyID = args[0]
		if contactInput.Message == "" {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("Your name").Value(&contactInput.Name),
				huh.NewInput().Title("Your email").Value(&contactInput.Email),
				huh.NewInput().Title("Subject").Value(&contactInput.Subject),
				huh.NewText().Title("Message").Value(&contactInput.Message),
			))
			if err := form.Run(); err != nil {
				return err
			}
		}
		c, err := current.contacts.Send(cmd.Context(), contactInput)
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent inquiry %s\n", c.ID)
		return nil
	},
}

var contactsSetStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Move an inquiry through its workflow",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := current.contacts.UpdateStatus(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", c.ID, c.Status)
		return nil
	},
}

var contactsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an inquiry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.contacts.Remove(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("%s", renderError(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
		return nil
	},
}

func init() {
	contactsListCmd.Flags().BoolVar(&contactsMine, "mine", false, "only inquiries I sent")
	contactsListCmd.Flags().IntVar(&listPage, "page", 0, "page number")
	contactsListCmd.Flags().IntVar(&listLimit, "limit", 0, "page size")

	contactsSendCmd.Flags().StringVar(&contactInput.Name, "name", "", "sender name")
	contactsSendCmd.Flags().StringVar(&contactInput.Email, "email", "", "sender email")
	contactsSendCmd.Flags().StringVar(&contactInput.Subject, "subject", "", "subject line")
	contactsSendCmd.Flags().StringVar(&contactInput.Message, "message", "", "message body (prompted when omitted)")

	contactsCmd.AddCommand(contactsListCmd, contactsGetCmd, contactsSendCmd,
		contactsSetStatusCmd, contactsDeleteCmd)
	rootCmd.AddCommand(contactsCmd)
}
