package party

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BananaLabs/oss-companion/internal/codec"
	"github.com/BananaLabs/oss-companion/internal/transport"
	"github.com/BananaLabs/oss-companion/internal/types"
)

type sentMessage struct {
	FriendID string
	Body     string
}

// fakeChat records outbound messages and can simulate a dead League client.
type fakeChat struct {
	mu        sync.Mutex
	sent      []sentMessage
	failSends bool
}

func (f *fakeChat) SendMessage(_ context.Context, friendID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSends {
		return fmt.Errorf("send: %w", transport.ErrUnavailable)
	}
	f.sent = append(f.sent, sentMessage{FriendID: friendID, Body: text})
	return nil
}

func (f *fakeChat) ListFriends(context.Context) ([]types.Friend, error) { return nil, nil }

func (f *fakeChat) FetchRecentMessages(context.Context, string) ([]transport.Message, error) {
	return nil, nil
}

func (f *fakeChat) lastSent(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func (f *fakeChat) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestService(t *testing.T, chat transport.Chat, cfg Config) *Service {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewService(ctx, chat, cfg, zap.NewNop().Sugar())
}

// requestToken builds the framed-token payload a friend's request would carry.
func requestToken(t *testing.T, skins ...types.SkinSelection) string {
	t.Helper()
	if skins == nil {
		skins = []types.SkinSelection{}
	}
	token, err := codec.Encode(types.SyncPayload{
		UserSkins:   skins,
		RequestType: types.RequestTypeRequest,
		Version:     types.PayloadVersion,
	})
	require.NoError(t, err)
	return token
}

func decodeSent(t *testing.T, body string) types.SyncPayload {
	t.Helper()
	token, ok := codec.ScanForFramed(body)
	require.True(t, ok, "outbound message is not framed: %q", body)
	payload, err := codec.Decode(token)
	require.NoError(t, err)
	return payload
}

func TestSubmitRequest_SendsSelectionsAndInsertsPlaceholder(t *testing.T) {
	chat := &fakeChat{}
	svc := newTestService(t, chat, Config{})

	svc.SetSelection(types.SkinSelection{ChampionID: 266, SkinID: 266021})

	require.NoError(t, svc.SubmitRequest("friend1", "SummonerOne"))

	msg := chat.lastSent(t)
	assert.Equal(t, "friend1", msg.FriendID)
	payload := decodeSent(t, msg.Body)
	assert.Equal(t, types.RequestTypeRequest, payload.RequestType)
	require.Len(t, payload.UserSkins, 1)
	assert.Equal(t, 266, payload.UserSkins[0].ChampionID)

	view := svc.State()
	require.Len(t, view.Members, 1)
	assert.Equal(t, "friend1", view.Members[0].ID)
	assert.Equal(t, "SummonerOne", view.Members[0].Name)
	assert.Empty(t, view.Members[0].Skins, "placeholder skins stay empty until the accept arrives")
}

func TestSubmitRequest_DuplicateMember(t *testing.T) {
	chat := &fakeChat{}
	svc := newTestService(t, chat, Config{})

	require.NoError(t, svc.SubmitRequest("friend1", "SummonerOne"))
	assert.ErrorIs(t, svc.SubmitRequest("friend1", "SummonerOne"), ErrDuplicateMember)
}

func TestSubmitRequest_CapacityExceeded(t *testing.T) {
	chat := &fakeChat{}
	svc := newTestService(t, chat, Config{})

	for i := 1; i <= types.MaxPartySize; i++ {
		require.NoError(t, svc.SubmitRequest(fmt.Sprintf("friend%d", i), fmt.Sprintf("Summoner%d", i)))
	}
	err := svc.SubmitRequest("friend5", "SummonerFive")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Len(t, svc.State().Members, types.MaxPartySize)
}

func TestSubmitRequest_SendFailureRollsBack(t *testing.T) {
	chat := &fakeChat{failSends: true}
	svc := newTestService(t, chat, Config{})

	err := svc.SubmitRequest("friend1", "SummonerOne")
	assert.ErrorIs(t, err, transport.ErrUnavailable)
	assert.Empty(t, svc.State().Members)
}

func TestAccept_BuildsMemberFromRequestPayload(t *testing.T) {
	chat := &fakeChat{}
	svc := newTestService(t, chat, Config{})
	svc.SetSelection(types.SkinSelection{ChampionID: 103, SkinID: 103042})

	token := requestToken(t, types.SkinSelection{ChampionID: 266, SkinID: 266021})
	svc.HandleRequest("friend1", "SummonerOne", token)

	view := svc.State()
	require.NotNil(t, view.Pending)
	assert.Equal(t, "friend1", view.Pending.FromMemberID)
	assert.Equal(t, token, view.Pending.Token)

	require.NoError(t, svc.Accept("friend1", "SummonerOne"))

	view = svc.State()
	assert.Nil(t, view.Pending)
	require.Len(t, view.Members, 1)
	member := view.Members[0]
	assert.Equal(t, "friend1", member.ID)
	require.Contains(t, member.Skins, 266)
	assert.Equal(t, 266021, member.Skins[266].SkinID)

	// The accept response carries our own selections back.
	payload := decodeSent(t, chat.lastSent(t).Body)
	assert.Equal(t, types.RequestTypeAccept, payload.RequestType)
	require.Len(t, payload.UserSkins, 1)
	assert.Equal(t, 103, payload.UserSkins[0].ChampionID)
}

func TestAccept_NoPendingRequest(t *testing.T) {
	svc := newTestService(t, &fakeChat{}, Config{})
	assert.ErrorIs(t, svc.Accept("friend1", "SummonerOne"), ErrNoPendingRequest)
}

func TestAccept_WrongFriend(t *testing.T) {
	svc := newTestService(t, &fakeChat{}, Config{})
	svc.HandleRequest("friend1", "SummonerOne", requestToken(t))
	assert.ErrorIs(t, svc.Accept("friend2", "SummonerTwo"), ErrNoPendingRequest)
	assert.NotNil(t, svc.State().Pending)
}

func TestAccept_CapacityExceededKeepsRequestPending(t *testing.T) {
	chat := &fakeChat{}
	svc := newTestService(t, chat, Config{})

	for i := 1; i <= types.MaxPartySize; i++ {
		id := fmt.Sprintf("friend%d", i)
		svc.HandleRequest(id, id, requestToken(t))
		require.NoError(t, svc.Accept(id, id))
	}

	svc.HandleRequest("friend5", "SummonerFive", requestToken(t))
	require.NotNil(t, svc.State().Pending)

	err := svc.Accept("friend5", "SummonerFive")
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	view := svc.State()
	assert.Len(t, view.Members, types.MaxPartySize)
	require.NotNil(t, view.Pending, "request must stay available for an explicit reject")
	assert.Equal(t, "friend5", view.Pending.FromMemberID)

	require.NoError(t, svc.Reject("friend5"))
	assert.Nil(t, svc.State().Pending)
	assert.Len(t, svc.State().Members, types.MaxPartySize)
}

func TestAccept_SendFailureRollsBack(t *testing.T) {
	chat := &fakeChat{}
	svc := newTestService(t, chat, Config{})
	svc.HandleRequest("friend1", "SummonerOne", requestToken(t))

	chat.mu.Lock()
	chat.failSends = true
	chat.mu.Unlock()

	err := svc.Accept("friend1", "SummonerOne")
	assert.ErrorIs(t, err, transport.ErrUnavailable)

	view := svc.State()
	assert.Empty(t, view.Members)
	assert.NotNil(t, view.Pending, "failed accept leaves the request pending")
}

func TestReject_PendingRequestNeverTouchesRoster(t *testing.T) {
	chat := &fakeChat{}
	svc := newTestService(t, chat, Config{})

	require.NoError(t, svc.SubmitRequest("member1", "MemberOne"))
	svc.HandleRequest("friend2", "SummonerTwo", requestToken(t))

	require.NoError(t, svc.Reject("friend2"))

	view := svc.State()
	assert.Nil(t, view.Pending)
	require.Len(t, view.Members, 1)
	assert.Equal(t, "member1", view.Members[0].ID)

	payload := decodeSent(t, chat.lastSent(t).Body)
	assert.Equal(t, types.RequestTypeReject, payload.RequestType)
	assert.Empty(t, payload.UserSkins, "rejects carry an empty selection list")
}

func TestReject_RosterMemberNeverTouchesPending(t *testing.T) {
	chat := &fakeChat{}
	svc := newTestService(t, chat, Config{})

	require.NoError(t, svc.SubmitRequest("member1", "MemberOne"))
	svc.HandleRequest("friend2", "SummonerTwo", requestToken(t))

	require.NoError(t, svc.Reject("member1"))

	view := svc.State()
	assert.Empty(t, view.Members)
	require.NotNil(t, view.Pending)
	assert.Equal(t, "friend2", view.Pending.FromMemberID)
}

func TestReject_NothingToReject(t *testing.T) {
	svc := newTestService(t, &fakeChat{}, Config{})
	assert.ErrorIs(t, svc.Reject("nobody"), ErrNoPendingRequest)
}

func TestHandleRequest_ResolvedFriendDoesNotResurface(t *testing.T) {
	svc := newTestService(t, &fakeChat{}, Config{})

	svc.HandleRequest("friend1", "SummonerOne", requestToken(t))
	require.NoError(t, svc.Reject("friend1"))

	svc.HandleRequest("friend1", "SummonerOne", requestToken(t))
	assert.Nil(t, svc.State().Pending)
	assert.True(t, svc.State().Resolved["friend1"])
}

func TestHandleRequest_FromRosterMemberIgnored(t *testing.T) {
	svc := newTestService(t, &fakeChat{}, Config{})
	require.NoError(t, svc.SubmitRequest("friend1", "SummonerOne"))

	svc.HandleRequest("friend1", "SummonerOne", requestToken(t))
	assert.Nil(t, svc.State().Pending)
}

func TestHandleAccept_PopulatesPlaceholderSkins(t *testing.T) {
	svc := newTestService(t, &fakeChat{}, Config{})
	require.NoError(t, svc.SubmitRequest("friend1", "SummonerOne"))

	svc.HandleAccept("friend1", types.SyncPayload{
		UserSkins:   []types.SkinSelection{{ChampionID: 64, SkinID: 64012}},
		RequestType: types.RequestTypeAccept,
		Version:     types.PayloadVersion,
	})

	view := svc.State()
	require.Len(t, view.Members, 1)
	require.Contains(t, view.Members[0].Skins, 64)
	assert.Equal(t, 64012, view.Members[0].Skins[64].SkinID)
}

func TestHandleAccept_UnsolicitedIgnored(t *testing.T) {
	svc := newTestService(t, &fakeChat{}, Config{})
	svc.HandleAccept("stranger", types.SyncPayload{
		UserSkins:   []types.SkinSelection{{ChampionID: 64, SkinID: 64012}},
		RequestType: types.RequestTypeAccept,
		Version:     types.PayloadVersion,
	})
	assert.Empty(t, svc.State().Members)
}

func TestHandleReject_RemovesMember(t *testing.T) {
	svc := newTestService(t, &fakeChat{}, Config{})
	require.NoError(t, svc.SubmitRequest("friend1", "SummonerOne"))

	svc.HandleReject("friend1")
	assert.Empty(t, svc.State().Members)
}

func TestRefreshPresence_UpdatesAndPrunes(t *testing.T) {
	svc := newTestService(t, &fakeChat{}, Config{StaleAfter: 50 * time.Millisecond})
	require.NoError(t, svc.SubmitRequest("friend1", "SummonerOne"))
	require.NoError(t, svc.SubmitRequest("friend2", "SummonerTwo"))

	svc.RefreshPresence([]types.Friend{
		{ID: "friend1", Name: "SummonerOne", Availability: types.AvailabilityInGame},
	})

	view := svc.State()
	require.Len(t, view.Members, 2)
	assert.Equal(t, types.AvailabilityInGame, view.Members[0].Availability)

	// friend2 drops off the friends list and ages past the threshold.
	time.Sleep(100 * time.Millisecond)
	svc.RefreshPresence([]types.Friend{
		{ID: "friend1", Name: "SummonerOne", Availability: types.AvailabilityInGame},
	})

	view = svc.State()
	require.Len(t, view.Members, 1)
	assert.Equal(t, "friend1", view.Members[0].ID)
}

func TestSelections_SetAndClear(t *testing.T) {
	svc := newTestService(t, &fakeChat{}, Config{})

	svc.SetSelection(types.SkinSelection{ChampionID: 266, SkinID: 266021})
	svc.SetSelection(types.SkinSelection{ChampionID: 103, SkinID: 103042})
	svc.ClearSelection(266)

	view := svc.State()
	assert.NotContains(t, view.Selections, 266)
	require.Contains(t, view.Selections, 103)
	assert.Equal(t, 103042, view.Selections[103].SkinID)
}

func TestSubscribe_PushesSnapshotsOnChange(t *testing.T) {
	svc := newTestService(t, &fakeChat{}, Config{})

	out := make(chan Snapshot, 4)
	svc.Subscribe("ui", out)

	first := recvSnapshot(t, out)
	assert.Equal(t, 0, first.Version)

	svc.HandleRequest("friend1", "SummonerOne", requestToken(t))

	next := recvSnapshot(t, out)
	assert.Equal(t, 1, next.Version)
	require.NotNil(t, next.Pending)
	assert.Equal(t, "friend1", next.Pending.FromMemberID)
}

func recvSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("snapshot outbox closed unexpectedly")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}
