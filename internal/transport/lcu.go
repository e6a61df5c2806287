package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BananaLabs/oss-companion/internal/types"
)

// LCU talks to the local League client's REST API. The client serves HTTPS on
// a loopback port with a self-signed certificate and basic auth, both read
// from its lockfile on every call so a client restart is picked up without
// restarting us.
type LCU struct {
	leaguePath string
	httpc      *http.Client
	log        *zap.SugaredLogger
}

var _ Chat = (*LCU)(nil)
var _ Gameflow = (*LCU)(nil)

func NewLCU(leaguePath string, log *zap.SugaredLogger) *LCU {
	return &LCU{
		leaguePath: leaguePath,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				// The client's certificate is self-signed on purpose.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		log: log,
	}
}

func (c *LCU) do(ctx context.Context, method, path string, body any, out any) error {
	info, err := readLockfile(c.leaguePath)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	url := fmt.Sprintf("https://127.0.0.1:%d%s", info.Port, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth("riot", info.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, ErrUnavailable)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

var errNotFound = fmt.Errorf("not found")

type lcuFriend struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Availability string `json:"availability"`
	GameTag      string `json:"gameTag"`
}

func (c *LCU) ListFriends(ctx context.Context) ([]types.Friend, error) {
	var raw []lcuFriend
	if err := c.do(ctx, http.MethodGet, "/lol-chat/v1/friends", nil, &raw); err != nil {
		return nil, err
	}
	friends := make([]types.Friend, 0, len(raw))
	for _, f := range raw {
		if f.ID == "" || f.Name == "" {
			continue
		}
		friends = append(friends, types.Friend{
			ID:           f.ID,
			Name:         f.Name,
			Availability: mapAvailability(f.Availability),
			Game:         f.GameTag,
		})
	}
	return friends, nil
}

// mapAvailability folds the client's presence vocabulary into ours.
func mapAvailability(lcu string) types.Availability {
	switch lcu {
	case "chat":
		return types.AvailabilityOnline
	case "dnd", "away", "mobile":
		return types.AvailabilityAway
	case "offline":
		return types.AvailabilityOffline
	case "inGame":
		return types.AvailabilityInGame
	default:
		return types.AvailabilityOnline
	}
}

func (c *LCU) SendMessage(ctx context.Context, friendID, text string) error {
	body := map[string]string{"body": text, "type": "chat"}
	path := fmt.Sprintf("/lol-chat/v1/conversations/%s/messages", friendID)
	err := c.do(ctx, http.MethodPost, path, body, nil)
	if err == errNotFound {
		return fmt.Errorf("no conversation with %s: %w", friendID, ErrUnavailable)
	}
	return err
}

func (c *LCU) FetchRecentMessages(ctx context.Context, friendID string) ([]Message, error) {
	path := fmt.Sprintf("/lol-chat/v1/conversations/%s/messages", friendID)
	var msgs []Message
	err := c.do(ctx, http.MethodGet, path, nil, &msgs)
	if err == errNotFound {
		// Normal for friends we have never chatted with.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *LCU) Phase(ctx context.Context) (string, error) {
	var phase string
	if err := c.do(ctx, http.MethodGet, "/lol-gameflow/v1/gameflow-phase", nil, &phase); err != nil {
		return "", err
	}
	return phase, nil
}

type champSelectSession struct {
	LocalPlayerCellID int `json:"localPlayerCellId"`
	MyTeam            []struct {
		CellID     int `json:"cellId"`
		ChampionID int `json:"championId"`
	} `json:"myTeam"`
}

func (c *LCU) LockedChampion(ctx context.Context) (int, bool, error) {
	var session champSelectSession
	err := c.do(ctx, http.MethodGet, "/lol-champ-select/v1/session", nil, &session)
	if err == errNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	for _, p := range session.MyTeam {
		if p.CellID == session.LocalPlayerCellID && p.ChampionID > 0 {
			return p.ChampionID, true, nil
		}
	}
	return 0, false, nil
}
