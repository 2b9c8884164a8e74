package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatsync/internal/projector"
)

type options struct {
	file        string
	databaseURL string
	user        string
	filter      string
	search      string
	lockedView  bool
	passcode    string
	unlock      []string
	tz          string
	now         func() time.Time
}

func newRootCommand() *cobra.Command {
	o := &options{now: time.Now}
	root := &cobra.Command{
		Use:           "inspect",
		Short:         "print chat list and message list projections for a user",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&o.file, "file", "f", "", "JSON snapshot with conversations, messages and settings")
	pf.StringVar(&o.databaseURL, "db", os.Getenv("DATABASE_URL"), "Postgres URL (used when --file is empty)")
	pf.StringVarP(&o.user, "user", "u", "", "user id whose view is printed")
	pf.StringVar(&o.filter, "filter", "all", "projection filter")
	pf.StringVarP(&o.search, "search", "q", "", "search term")
	pf.BoolVar(&o.lockedView, "locked-view", false, "show locked chats instead of open ones")
	pf.StringVar(&o.passcode, "passcode", "", "passcode for --locked-view")
	pf.StringVar(&o.tz, "tz", "UTC", "timezone for date separators")
	_ = root.MarkPersistentFlagRequired("user")

	root.AddCommand(newChatsCommand(o), newMessagesCommand(o))
	return root
}

func newChatsCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "chats",
		Short:   "print the chat list",
		Example: "inspect chats -f snapshot.json -u alice --filter group",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := openEngine(cmd.Context(), o)
			defer closeFn()
			if err != nil {
				return err
			}
			rows := e.ChatList(projector.ParseChatFilter(o.filter), o.search)
			printChats(cmd.OutOrStdout(), rows, o.now())
			return nil
		},
	}
}

func newMessagesCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages <conversation-id>",
		Short:   "print the message list of one chat",
		Example: "inspect messages c1 -f snapshot.json -u alice --unlock 2024-05-01",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, closeFn, err := openEngine(cmd.Context(), o)
			defer closeFn()
			if err != nil {
				return err
			}
			for _, day := range o.unlock {
				e.Overlay().UnlockForSession(args[0], day)
			}
			items, err := e.MessageList(args[0], projector.ParseMessageFilter(o.filter), o.search)
			if err != nil {
				return err
			}
			printMessages(cmd.OutOrStdout(), e.UserID(), items)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&o.unlock, "unlock", nil, "days (YYYY-MM-DD) opened for this run")
	return cmd
}
