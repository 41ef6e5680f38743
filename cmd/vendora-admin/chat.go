package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	adminchat "github.com/vendora-hq/adminchat-go"
)

// ============================================================================
// Flag variables
// ============================================================================

var (
	// inbox
	inboxJSON bool

	// chat
	chatNoCache bool
)

// ============================================================================
// inbox
// ============================================================================

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List support conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		conversations, err := client.Chat().Inbox(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if inboxJSON {
			b, _ := json.MarshalIndent(conversations, "", "  ")
			fmt.Println(string(b))
			return nil
		}

		if len(conversations) == 0 {
			fmt.Println("No conversations found.")
			return nil
		}

		for _, c := range conversations {
			preview := ""
			if c.LastMessage != nil {
				preview = " - " + c.LastMessage.Text
			}
			fmt.Printf("  %s: %s%s\n", c.ID, c.Store.Name, preview)
		}
		return nil
	},
}

// ============================================================================
// chat
// ============================================================================

var chatCmd = &cobra.Command{
	Use:   "chat <store-id>",
	Short: "Open an interactive chat with a store",
	Long: "Connect to the real-time server, open (or create) the conversation " +
		"with the given store, and exchange messages from the terminal. " +
		"Type a line to send it; /read marks the thread read; /quit exits.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storeID := args[0]
		client, cfg := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		rt, err := adminchat.GetConnection(ctx, client.RealtimeURL(), nil)
		if err != nil {
			return fmt.Errorf("real-time connect failed: %w", err)
		}
		defer adminchat.DisconnectShared()

		opts := &adminchat.ControllerOptions{}
		if cfg.Default.CachePath != "" && !chatNoCache {
			cache, err := adminchat.NewSQLCache(cfg.Default.CachePath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: cache unavailable: %v\n", err)
			} else {
				opts.Cache = cache
				defer cache.Close()
			}
		}

		controller := adminchat.NewChatController(client, rt, opts)
		defer controller.Close(context.Background())

		controller.OnEvent("message", func(event string, payload any) {
			msg, ok := payload.(adminchat.Message)
			if !ok {
				return
			}
			fmt.Printf("\r[%s] %s: %s\n> ", msg.CreatedAt, msg.Sender.Name, msg.Text)
		})
		controller.OnEvent("error", func(event string, payload any) {
			if err, ok := payload.(error); ok {
				fmt.Fprintf(os.Stderr, "\rWarning: %v\n> ", err)
			}
		})

		if err := controller.FetchInbox(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: inbox fetch failed: %v\n", err)
		}

		conv, err := controller.SelectCounterparty(ctx, adminchat.StoreRef{ID: storeID})
		if err != nil {
			return fmt.Errorf("cannot open conversation: %w", err)
		}

		fmt.Printf("Connected to %s (conversation %s)\n", conv.Store.Name, conv.ID)
		for _, msg := range controller.Store().Messages() {
			fmt.Printf("[%s] %s: %s\n", msg.CreatedAt, msg.Sender.Name, msg.Text)
		}

		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "":
			case line == "/quit" || line == "/exit":
				return nil
			case line == "/read":
				readCtx, readCancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := controller.MarkRead(readCtx); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: mark read failed: %v\n", err)
				}
				readCancel()
			default:
				sendCtx, sendCancel := context.WithTimeout(context.Background(), 15*time.Second)
				if _, err := controller.Send(sendCtx, line); err != nil {
					fmt.Fprintf(os.Stderr, "Send failed: %v\n", err)
				}
				sendCancel()
			}
			fmt.Print("> ")
		}
		return scanner.Err()
	},
}

// ============================================================================
// send
// ============================================================================

var sendCmd = &cobra.Command{
	Use:   "send <store-id> <message>",
	Short: "Send a single message to a store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		storeID, text := args[0], args[1]
		client, _ := getClient()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		rt, err := adminchat.GetConnection(ctx, client.RealtimeURL(), nil)
		if err != nil {
			return fmt.Errorf("real-time connect failed: %w", err)
		}
		defer adminchat.DisconnectShared()

		controller := adminchat.NewChatController(client, rt, nil)
		defer controller.Close(context.Background())

		if err := controller.FetchInbox(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: inbox fetch failed: %v\n", err)
		}

		conv, err := controller.SelectCounterparty(ctx, adminchat.StoreRef{ID: storeID})
		if err != nil {
			return fmt.Errorf("cannot open conversation: %w", err)
		}

		msg, err := controller.Send(ctx, text)
		if err != nil {
			return fmt.Errorf("send failed: %w", err)
		}

		fmt.Printf("Message sent to conversation %s\n", conv.ID)
		fmt.Printf("  Message ID: %s\n", msg.ID)
		fmt.Printf("  Text:       %s\n", msg.Text)
		return nil
	},
}

// ============================================================================
// Registration
// ============================================================================

func init() {
	inboxCmd.Flags().BoolVar(&inboxJSON, "json", false, "Output raw JSON")
	chatCmd.Flags().BoolVar(&chatNoCache, "no-cache", false, "Disable the local message cache")

	rootCmd.AddCommand(inboxCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sendCmd)
}
