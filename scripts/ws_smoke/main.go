package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-dispatch/internal/proto"
)

type envelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	user := flag.String("user", "tester", "username to log in with")
	pass := flag.String("pass", "password123", "password")
	channel := flag.String("channel", "", "channel id to send to; empty uses the notes channel")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var auth struct {
		Token string     `json:"token"`
		User  proto.User `json:"user"`
	}
	creds := map[string]string{"username": *user, "password": *pass}
	if status, err := post(ctx, *base+"/api/login", "", creds, &auth); err != nil || status != http.StatusOK {
		if _, err := post(ctx, *base+"/api/register", "", creds, &auth); err != nil {
			return fmt.Errorf("register: %w", err)
		}
	}
	if auth.Token == "" {
		return fmt.Errorf("no token for %s", *user)
	}

	wsURL := strings.Replace(*base, "http", "ws", 1) + "/ws?token=" + auth.Token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	hello, err := next(ctx, conn)
	if err != nil {
		return err
	}
	var helloData proto.HelloData
	if err := json.Unmarshal(hello.Data, &helloData); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}
	fmt.Printf("hello: socket=%s protocol=%d\n", helloData.SocketID, helloData.Protocol)

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypePing}); err != nil {
		return fmt.Errorf("send ping: %w", err)
	}
	if pong, err := next(ctx, conn); err != nil {
		return err
	} else if pong.Event != proto.EventPong {
		return fmt.Errorf("expected pong, got %s", pong.Event)
	}

	target := *channel
	if target == "" {
		var notes struct {
			ChannelID string `json:"channelID"`
		}
		if _, err := post(ctx, *base+"/api/channels/dm/"+auth.User.ID, auth.Token, nil, &notes); err != nil {
			return fmt.Errorf("open notes: %w", err)
		}
		target = notes.ChannelID
	}

	var sent struct {
		Status         bool          `json:"status"`
		TempID         string        `json:"tempID"`
		MessageCreated proto.Message `json:"messageCreated"`
	}
	body := map[string]string{"message": *text, "tempID": "smoke-1", "socketID": helloData.SocketID}
	status, err := post(ctx, *base+"/api/channels/"+target+"/messages", auth.Token, body, &sent)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	fmt.Printf("send: status=%d message=%s tempID=%s\n", status, sent.MessageCreated.MessageID, sent.TempID)

	// Print whatever else arrives until the deadline.
	for {
		env, err := next(ctx, conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if env.Error != nil {
			fmt.Printf("error: %s %s\n", env.Error.Code, env.Error.Msg)
			continue
		}
		fmt.Printf("event=%s data=%s\n", env.Event, env.Data)
	}
}

func next(ctx context.Context, conn *websocket.Conn) (envelope, error) {
	var env envelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		return env, fmt.Errorf("read: %w", err)
	}
	return env, nil
}

func post(ctx context.Context, url, token string, body, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
