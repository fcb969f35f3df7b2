package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/chatmate/chatmate/internal/service"
)

// chatmate-cli is a websocket debug client.
//
// Lines read from stdin are sent as send-message frames to the current partner.
// Commands:
//
//	/to <user>      switch partner (sends start-chat)
//	/agent <text>   talk to the coaching agent
//	/read <id>      mark a message read
//	/quit           exit
func main() {
	serverURL := pflag.StringP("server", "s", "http://localhost:3001", "server base URL")
	token := pflag.StringP("token", "t", "", "access token, skips login")
	user := pflag.StringP("user", "u", "", "user ID or phone number to log in with")
	password := pflag.StringP("password", "p", "", "password to log in with")
	partner := pflag.String("to", "", "initial chat partner")
	pflag.Parse()

	if *token == "" {
		if *user == "" || *password == "" {
			fmt.Println("Usage: chatmate-cli --token <token> | --user <id> --password <pw> [--to <partner>]")
			os.Exit(1)
		}
		t, err := login(*serverURL, *user, *password)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		*token = t
	}

	conn, err := dial(*serverURL, *token)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Println("Connected. Type /quit to exit.")

	done := make(chan struct{})
	go func() {
		defer close(done)
		printEvents(conn)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		os.Exit(0)
	}()

	to := *partner
	if to != "" {
		send(conn, service.EventStartChat, map[string]string{"partnerId": to})
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "/quit":
			return
		case "/to":
			to = strings.TrimSpace(arg)
			send(conn, service.EventStartChat, map[string]string{"partnerId": to})
		case "/agent":
			send(conn, service.EventAgentMessage, map[string]string{"message": arg})
		case "/read":
			send(conn, service.EventMessageRead, map[string]string{"messageId": strings.TrimSpace(arg), "partnerId": to})
		default:
			if to == "" {
				fmt.Println("No partner, use /to <user> first")
				continue
			}
			send(conn, service.EventSendMessage, map[string]string{"partnerId": to, "message": line})
		}

		select {
		case <-done:
			fmt.Println("Connection closed")
			return
		default:
		}
	}
}

func login(serverURL, identifier, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"identifier": identifier, "password": password})
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to log in: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed (%d): %s", resp.StatusCode, result.Error)
	}
	return result.Token, nil
}

func dial(serverURL, token string) (*websocket.Conn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return conn, nil
}

func send(conn *websocket.Conn, event string, data interface{}) {
	raw, _ := json.Marshal(data)
	if err := conn.WriteJSON(service.Envelope{Event: event, Data: raw}); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

func printEvents(conn *websocket.Conn) {
	for {
		var env service.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, env.Data, "  ", "  "); err != nil {
			fmt.Printf("< %s %s\n", env.Event, env.Data)
			continue
		}
		fmt.Printf("< %s\n  %s\n", env.Event, pretty.String())
	}
}
