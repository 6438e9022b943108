// Command client is a small interactive terminal client for poking at
// a running server. It creates a session, joins a room and polls its
// state; game actions are typed at the prompt as `<endpoint> <json>`.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) post(path string, body any) (map[string]any, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Session-Token", c.token)
	}
	return c.do(req)
}

func (c *client) get(path string) (map[string]any, error) {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("X-Session-Token", c.token)
	}
	return c.do(req)
}

func (c *client) do(req *http.Request) (map[string]any, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, raw)
		}
	}
	if resp.StatusCode >= 400 {
		return out, fmt.Errorf("status %d: %v", resp.StatusCode, out["detail"])
	}
	return out, nil
}

func dump(v any) {
	raw, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(raw))
}

func main() {
	base := flag.String("addr", "http://localhost:8080", "server base URL")
	game := flag.String("game", "read-my-mind", "game slug for a new room")
	join := flag.String("join", "", "join an existing room code instead of creating one")
	name := flag.String("name", "tester", "player name")
	flag.Parse()

	c := &client{base: *base + "/api", http: &http.Client{Timeout: 10 * time.Second}}

	sess, err := c.post("/session", nil)
	if err != nil {
		log.Fatalf("Session failed: %v", err)
	}
	c.token = sess["token"].(string)
	log.Printf("Session ready, user_id=%v", sess["user_id"])

	code := *join
	if code == "" {
		created, err := c.post("/rooms", map[string]any{"game": *game})
		if err != nil {
			log.Fatalf("Create room failed: %v", err)
		}
		code = created["code"].(string)
		log.Printf("Created room %s (%s)", code, *game)
	}

	if _, err := c.post("/rooms/"+code+"/join", map[string]any{"name": *name}); err != nil {
		log.Fatalf("Join failed: %v", err)
	}
	log.Printf("Joined room %s. Commands: state | ready | start | <endpoint> <json> | quit", code)

	// Background poll keeps the heartbeat fresh.
	go func() {
		for {
			time.Sleep(10 * time.Second)
			c.post("/rooms/"+code+"/heartbeat", nil)
		}
	}()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch cmd {
		case "":
			continue
		case "quit", "exit":
			return
		case "state":
			room, err := c.get("/rooms/" + code)
			if err != nil {
				log.Printf("Error: %v", err)
				continue
			}
			dump(room)
		case "ready":
			if _, err := c.post("/rooms/"+code+"/ready", map[string]any{"ready": true}); err != nil {
				log.Printf("Error: %v", err)
			}
		case "start":
			if _, err := c.post("/rooms/"+code+"/start", nil); err != nil {
				log.Printf("Error: %v", err)
			}
		default:
			// Anything else is treated as an action endpoint, e.g.
			//   read_my_mind_play {"card": 42}
			var body map[string]any
			if rest != "" {
				if err := json.Unmarshal([]byte(rest), &body); err != nil {
					log.Printf("Bad payload: %v", err)
					continue
				}
			}
			room, err := c.post("/rooms/"+code+"/"+cmd, body)
			if err != nil {
				log.Printf("Error: %v", err)
				continue
			}
			dump(room)
		}
	}
}
