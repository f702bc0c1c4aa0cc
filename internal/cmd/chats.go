package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/botbridge/botbridge-cli/internal/api"
	"github.com/botbridge/botbridge-cli/internal/cache"
	"github.com/botbridge/botbridge-cli/internal/inbox"
)

func newChatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chats",
		Aliases: []string{"chat", "c"},
		Short:   "Work with chat threads",
		Long:    "List chat heads, read history, send replies, and manage thread assignment.",
	}

	cmd.AddCommand(newChatsListCmd())
	cmd.AddCommand(newChatsHistoryCmd())
	cmd.AddCommand(newChatsSendCmd())
	cmd.AddCommand(newChatsAssignCmd())
	cmd.AddCommand(newChatsDoneCmd())

	return cmd
}

func newChatsListCmd() *cobra.Command {
	var (
		channelFlag string
		search      string
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List chat heads, most recent first",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			channel, err := api.ParseChannel(channelFlag)
			if err != nil {
				return err
			}

			client, err := getClient()
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			var heads []api.ChatHead
			store := cache.NewStore(cache.DefaultDir(), "chat-heads-"+string(channel), client.BaseURL, client.CompanyID)
			if noCache || !store.Get(&heads) {
				heads, err = client.ListChatHeads(ctx, channel)
				if err != nil {
					return err
				}
				if !noCache {
					store.Put(heads)
				}
			}

			// Channel scope came from the server; search narrows locally
			// with the same projection the live inbox uses.
			visible := inbox.Visible(heads, api.ChannelAll, search)

			if isJSON(cmd) {
				return printJSON(cmd, visible)
			}
			if len(visible) == 0 {
				printIfNotQuiet(cmd, "No chats found\n")
				return nil
			}

			w := newTabWriterFromCmd(cmd)
			_, _ = fmt.Fprintln(w, "THREAD\tCHANNEL\tCUSTOMER\tHANDLER\tLAST MESSAGE")
			for _, h := range visible {
				preview := ""
				if h.LastMessage != nil {
					preview = truncate(h.LastMessage.Content, 48)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					h.ID, h.Channel, h.DisplayName(), h.CurrentHandler, preview)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().StringVarP(&channelFlag, "channel", "c", "all", "Channel filter: all|whatsapp|web")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by customer name or phone (substring)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the local snapshot cache")
	flagAlias(cmd.Flags(), "channel", "ch")
	flagAlias(cmd.Flags(), "no-cache", "nc")

	return cmd
}

func newChatsHistoryCmd() *cobra.Command {
	var offset int

	cmd := &cobra.Command{
		Use:     "history <thread|name>",
		Aliases: []string{"h"},
		Short:   "Show a thread's messages, oldest first",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			threadID, err := resolveThreadID(ctx, client, args[0])
			if err != nil {
				return err
			}

			page, err := client.ChatHistory(ctx, threadID, offset)
			if err != nil {
				return err
			}

			// Merge the newest-first page the way the live inbox does, so
			// ordering and display times are identical everywhere.
			var buf inbox.Buffer
			buf.Replace(threadID, page)
			entries := buf.Messages()

			if isJSON(cmd) {
				return printJSON(cmd, entries)
			}
			if len(entries) == 0 {
				printIfNotQuiet(cmd, "No messages\n")
				return nil
			}

			w := newTabWriterFromCmd(cmd)
			for _, e := range entries {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.DisplayTime, roleLabel(e.Role), e.Content)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Number of newest messages to skip (pagination)")
	flagAlias(cmd.Flags(), "offset", "off")

	return cmd
}

func newChatsSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <thread|name> <text>",
		Short: "Send a reply on the thread's channel",
		Long: strings.TrimSpace(`
Send a message to a thread. WhatsApp threads go through the WhatsApp gateway
(addressed by the customer's phone number); web threads go through the web
chat endpoint.`),
		Args: cobra.MinimumNArgs(2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args[1:], " "))
			if text == "" {
				return fmt.Errorf("message text is required")
			}

			client, err := getClient()
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			threadID, err := resolveThreadID(ctx, client, args[0])
			if err != nil {
				return err
			}
			heads, err := client.ListChatHeads(ctx, api.ChannelAll)
			if err != nil {
				return err
			}
			head := headByID(heads, threadID)
			if head == nil {
				return fmt.Errorf("thread %s not found", threadID)
			}

			if !isJSON(cmd) {
				printIfNotQuiet(cmd, "Sending to %s (%s)...\n", head.DisplayName(), api.StatusSending)
			}

			var sent *api.Message
			switch head.Channel {
			case api.ChannelWhatsApp:
				if head.Customer.Phone == "" {
					return fmt.Errorf("thread %s has no customer phone number", threadID)
				}
				sent, err = client.SendWhatsApp(ctx, head.Customer.Phone, text)
			case api.ChannelWeb:
				sent, err = client.SendWeb(ctx, threadID, text)
			default:
				return fmt.Errorf("cannot send on channel %q", head.Channel)
			}
			if err != nil {
				return fmt.Errorf("send failed: %w", err)
			}

			if isJSON(cmd) {
				return printJSON(cmd, sent)
			}
			status := api.StatusSent
			if sent != nil && sent.Status != "" {
				status = sent.Status
			}
			printIfNotQuiet(cmd, "Sent to %s (%s): %s\n", head.DisplayName(), status, truncate(text, 60))
			return nil
		}),
	}

	return cmd
}

func newChatsAssignCmd() *cobra.Command {
	var (
		agentID string
		bot     bool
	)

	cmd := &cobra.Command{
		Use:   "assign <thread|name>",
		Short: "Hand a thread to an agent or back to the bot",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if bot == (agentID != "") {
				return fmt.Errorf("exactly one of --agent or --bot is required")
			}

			client, err := getClient()
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			threadID, err := resolveThreadID(ctx, client, args[0])
			if err != nil {
				return err
			}
			heads, err := client.ListChatHeads(ctx, api.ChannelAll)
			if err != nil {
				return err
			}
			head := headByID(heads, threadID)
			if head == nil {
				return fmt.Errorf("thread %s not found", threadID)
			}

			req := api.AssignRequest{
				ThreadID: threadID,
				Channel:  head.Channel,
				Phone:    head.Customer.Phone,
			}
			if bot {
				req.Handler = api.HandlerBot
			} else {
				req.Handler = api.HandlerAgent
				req.AssignedAgentID = agentID
			}
			if err := client.Assign(ctx, req); err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"threadId": threadID,
					"handler":  req.Handler,
					"agentId":  req.AssignedAgentID,
				})
			}
			if bot {
				printIfNotQuiet(cmd, "Thread %s handed back to the bot\n", threadID)
			} else {
				printIfNotQuiet(cmd, "Thread %s assigned to agent %s\n", threadID, agentID)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "Agent id to assign the thread to")
	cmd.Flags().BoolVar(&bot, "bot", false, "Return the thread to bot handling")
	flagAlias(cmd.Flags(), "agent", "ag")

	return cmd
}

func newChatsDoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <thread|name>",
		Short: "Mark a thread as done",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			threadID, err := resolveThreadID(ctx, client, args[0])
			if err != nil {
				return err
			}
			if err := client.MarkDone(ctx, threadID); err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"threadId": threadID, "status": "done"})
			}
			printIfNotQuiet(cmd, "Thread %s marked as done\n", threadID)
			return nil
		}),
	}

	return cmd
}

func roleLabel(role api.Role) string {
	switch role {
	case api.RoleUser:
		return "customer"
	case api.RoleAssistant:
		return "reply"
	default:
		return string(role)
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
